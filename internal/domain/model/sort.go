package model

import "strings"

// Direction — направление сортировки.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection разбирает направление; всё, кроме "desc", считается asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Opposite возвращает противоположное направление.
func (d Direction) Opposite() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// SortSpec — активная сортировка. Одновременно активна не более одной.
type SortSpec struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}
