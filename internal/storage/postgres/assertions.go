package postgres

import (
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/service/income"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ expense.Repo   = (*Store)(nil)
	_ expense.Writer = (*Store)(nil)
	_ income.Repo    = (*Store)(nil)
	_ income.Writer  = (*Store)(nil)
)
