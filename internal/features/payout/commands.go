package payout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// PlayerPlaceholder подставляется в команды наград.
const PlayerPlaceholder = "{player}"

// Command — разобранная команда награды.
type Command struct {
	UserID int64    // Кому выдаётся награда
	Name   string   // say, role, give
	Args   []string // Аргументы шаблона через пробел, {player} — один аргумент
	Raw    string   // Строка после подстановки
}

// Executor выполняет одну команду.
type Executor func(ctx context.Context, cmd Command) error

// Mentioner возвращает имя игрока для {player}. Реализация — members.Service.
type Mentioner interface {
	Mention(ctx context.Context, userID int64) string
}

// CommandRunner выполняет команды из rewards.toml.
// Неизвестные команды логируются и пропускаются.
type CommandRunner struct {
	names     Mentioner
	executors map[string]Executor
}

// NewCommandRunner создаёт исполнитель команд.
func NewCommandRunner(names Mentioner) *CommandRunner {
	return &CommandRunner{
		names:     names,
		executors: make(map[string]Executor),
	}
}

// Handle регистрирует исполнителя для команды name.
func (r *CommandRunner) Handle(name string, exec Executor) {
	r.executors[strings.ToLower(name)] = exec
}

// Render подставляет имя игрока и убирает ведущий "/".
// Пустая строка означает, что команду выполнять не нужно.
func Render(template, player string) string {
	s := strings.TrimSpace(template)
	s = strings.TrimPrefix(s, "/")
	s = strings.ReplaceAll(s, PlayerPlaceholder, player)
	return strings.TrimSpace(s)
}

// Run выполняет команды по порядку. Ошибка одной команды не останавливает остальные.
func (r *CommandRunner) Run(ctx context.Context, userID int64, commands []string) error {
	player := r.names.Mention(ctx, userID)

	var errs []error
	for _, tmpl := range commands {
		line := Render(tmpl, player)
		if line == "" {
			continue
		}
		cmd := Command{UserID: userID, Raw: line}
		// делим шаблон до подстановки: имя с пробелами остаётся одним аргументом
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(tmpl), "/"))
		cmd.Name = strings.ToLower(fields[0])
		for _, f := range fields[1:] {
			cmd.Args = append(cmd.Args, strings.ReplaceAll(f, PlayerPlaceholder, player))
		}

		exec, ok := r.executors[cmd.Name]
		if !ok {
			log.WithFields(log.Fields{"user_id": userID, "command": line}).Warn("Неизвестная команда награды, пропускаем")
			continue
		}
		if err := exec(ctx, cmd); err != nil {
			errs = append(errs, fmt.Errorf("команда %q: %w", line, err))
			continue
		}
		log.WithFields(log.Fields{"user_id": userID, "command": line}).Debug("Команда награды выполнена")
	}
	return errors.Join(errs...)
}

// Poster отправляет текст в основной чат.
type Poster interface {
	Post(text string) error
}

// RoleAssigner назначает роль участнику. Реализация — members.Service.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID int64, role string) error
}

// ItemGiver выдаёт предметы. Реализация — inventory.Service.
type ItemGiver interface {
	Give(ctx context.Context, userID int64, itemID string, count int) error
}

// SayExecutor — "say <текст>": сообщение в основной чат.
func SayExecutor(p Poster) Executor {
	return func(_ context.Context, cmd Command) error {
		text := strings.TrimSpace(strings.TrimPrefix(cmd.Raw, strings.Fields(cmd.Raw)[0]))
		if text == "" {
			return errors.New("пустой текст")
		}
		return p.Post(text)
	}
}

// RoleExecutor — "role <игрок> <роль>": роль получает игрок, которому выдана награда.
// Первый аргумент — подставленное имя, он нужен только для читаемости шаблона.
func RoleExecutor(a RoleAssigner) Executor {
	return func(ctx context.Context, cmd Command) error {
		if len(cmd.Args) < 2 {
			return errors.New("формат: role {player} <роль>")
		}
		return a.AssignRole(ctx, cmd.UserID, strings.Join(cmd.Args[1:], " "))
	}
}

// GiveExecutor — "give <предмет> [количество]".
func GiveExecutor(g ItemGiver) Executor {
	return func(ctx context.Context, cmd Command) error {
		if len(cmd.Args) == 0 {
			return errors.New("формат: give <предмет> [количество]")
		}
		count := 1
		if len(cmd.Args) > 1 {
			n, err := strconv.Atoi(cmd.Args[1])
			if err != nil {
				return fmt.Errorf("некорректное количество %q", cmd.Args[1])
			}
			count = n
		}
		return g.Give(ctx, cmd.UserID, cmd.Args[0], count)
	}
}
