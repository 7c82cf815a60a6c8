package postgres

import (
	"serotonyl.ru/rewards-bot/internal/features/admin"
	"serotonyl.ru/rewards-bot/internal/features/economy"
	"serotonyl.ru/rewards-bot/internal/features/inventory"
	"serotonyl.ru/rewards-bot/internal/features/levels"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/payout"
	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// Schema — все миграции бота. Новые версии добавляются только в конец.
var Schema = []Migration{
	{Version: 1, Name: "members", SQL: members.Migration},
	{Version: 2, Name: "economy", SQL: economy.Migration},
	{Version: 3, Name: "admin", SQL: admin.Migration},
	{Version: 4, Name: "player_progress", SQL: progress.Migration},
	{Version: 5, Name: "experience", SQL: levels.Migration},
	{Version: 6, Name: "inventory", SQL: inventory.Migration},
	{Version: 7, Name: "reward_grants", SQL: payout.LedgerMigration},
}
