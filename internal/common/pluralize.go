// Package common — pluralize.go форматирует суммы валюты и опыта.
package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PluralizeFilms возвращает форму слова «пленка» для целого n.
//
//	PluralizeFilms(1)  → "пленка"
//	PluralizeFilms(3)  → "пленки"
//	PluralizeFilms(11) → "пленок"
func PluralizeFilms(n int64) string {
	return pluralize(n, "пленка", "пленки", "пленок")
}

// FormatCoins форматирует сумму пленок.
// Дробные суммы всегда идут с родительным падежом: "1.50 пленки".
//
//	FormatCoins(decimal.NewFromInt(150))     → "150 пленок"
//	FormatCoins(decimal.RequireFromString("2.5")) → "2.50 пленки"
func FormatCoins(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		n := amount.IntPart()
		return fmt.Sprintf("%s %s", FormatNumber(n), PluralizeFilms(n))
	}
	return fmt.Sprintf("%s пленки", amount.StringFixed(2))
}

// FormatCoinsDelta создаёт строку вида "+100 пленок" или "-50 пленок".
func FormatCoinsDelta(amount decimal.Decimal) string {
	if amount.Sign() >= 0 {
		return "+" + FormatCoins(amount)
	}
	return "-" + FormatCoins(amount.Neg())
}

// FormatXP форматирует опыт: "1 250 XP".
func FormatXP(xp int64) string {
	return FormatNumber(xp) + " XP"
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
