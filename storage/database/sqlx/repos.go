// Package sqlxrepos implements the domain repositories on PostgreSQL with
// handwritten SQL through sqlx. Each repository holds a default executor and
// accepts a per-call override so the same code runs standalone or inside a
// transaction opened by core.Transactor.
package sqlxrepos

import (
	"strings"

	"github.com/mwalimu/academia/core"
)

func getExec(def core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return def
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func searchPattern(keyword string) string {
	return "%" + keyword + "%"
}

func joinAnd(conds []string) string   { return strings.Join(conds, " AND ") }
func joinOr(conds []string) string    { return strings.Join(conds, " OR ") }
func joinComma(parts []string) string { return strings.Join(parts, ", ") }
