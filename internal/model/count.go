package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canopy density options offered on the counts form
var CanopyOptions = []string{"Low / Bajo", "Moderate / Moderado", "High / Alto"}

// Vigor options offered on the counts form
var VigorOptions = []string{"Weak / Débil", "Normal / Normal"}

// Count is a per-tree fruit count
type Count struct {
	CreatedBy   string `json:"createdBy" yaml:"createdBy" validate:"required"`
	Variety     string `json:"variety" yaml:"variety" validate:"required"`
	Subvariety  string `json:"subvariety" yaml:"subvariety"`
	BlockNumber string `json:"blockNumber" yaml:"blockNumber" validate:"required"`
	Row         string `json:"row" yaml:"row" validate:"required"`
	Tree        string `json:"tree" yaml:"tree" validate:"required"`
	CanopyType  string `json:"canopyType" yaml:"canopyType"`
	TotalFruit  int    `json:"totalFruit" yaml:"totalFruit" validate:"gte=0"`
	Vigor       string `json:"vigor" yaml:"vigor"`
}

// Trimmed returns a copy with surrounding whitespace removed from every text field
func (c Count) Trimmed() Count {
	c.CreatedBy = strings.TrimSpace(c.CreatedBy)
	c.Variety = strings.TrimSpace(c.Variety)
	c.Subvariety = strings.TrimSpace(c.Subvariety)
	c.BlockNumber = strings.TrimSpace(c.BlockNumber)
	c.Row = strings.TrimSpace(c.Row)
	c.Tree = strings.TrimSpace(c.Tree)
	c.CanopyType = strings.TrimSpace(c.CanopyType)
	c.Vigor = strings.TrimSpace(c.Vigor)
	return c
}

// CountRecord is a persisted count
type CountRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Count
}

// ParseTotalFruit converts the total fruit form input to an integer
func ParseTotalFruit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewValidationError(ErrMissingRequiredField, "totalFruit")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewValidationError(fmt.Errorf("%q: %w", s, ErrNotNumeric), "totalFruit")
	}
	return n, nil
}
