package database

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
)

const sqlDateLayout = "2006-01-02"

// cancelledExpr matches any status containing "cancelled", ignoring case
func cancelledExpr() exp.Expression {
	return goqu.C("status").ILike("%cancelled%")
}

// notCancelledExpr treats a NULL status as not cancelled. A bare NOT ILIKE
// would evaluate to NULL and silently drop those rows.
func notCancelledExpr() exp.Expression {
	return goqu.Or(
		goqu.C("status").IsNull(),
		goqu.C("status").NotILike("%cancelled%"),
	)
}

// tabExpr builds the predicate for one tab relative to today
func tabExpr(tab entities.Tab, today string) exp.Expression {
	date := goqu.C("date_of_appointment")
	switch tab {
	case entities.TabFuture:
		return goqu.And(date.Gte(today), notCancelledExpr())
	case entities.TabPast:
		return goqu.And(date.Lt(today), notCancelledExpr())
	case entities.TabNeedsReview:
		return goqu.And(
			date.Lt(today),
			notCancelledExpr(),
			goqu.Or(goqu.C("status").IsNull(), goqu.C("procedure_ordered").IsNull()),
		)
	case entities.TabCancelled:
		return cancelledExpr()
	}
	return nil
}

// portalExpr restricts rows to what a project portal may show
func portalExpr() exp.Expression {
	return goqu.Or(
		goqu.C("confirmed").IsTrue(),
		goqu.C("status").ILike("confirmed"),
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for a substring ILIKE with its wildcards escaped
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// searchExpr matches a free-text term against patient identity fields
func searchExpr(term string) exp.Expression {
	pattern := likePattern(term)
	return goqu.Or(
		goqu.C("lead_name").ILike(pattern),
		goqu.C("lead_phone_number").ILike(pattern),
		goqu.C("lead_email").ILike(pattern),
	)
}

// projectExpr scopes rows to tenants. Nil means no restriction.
func projectExpr(projects []string) exp.Expression {
	switch len(projects) {
	case 0:
		return nil
	case 1:
		return goqu.Ex{"project_name": projects[0]}
	}
	return goqu.Ex{"project_name": projects}
}

// appointmentWhere collects every predicate of a filter except the tab
func appointmentWhere(f repositories.AppointmentFilter, withTab bool) []exp.Expression {
	var where []exp.Expression
	if e := projectExpr(f.Projects); e != nil {
		where = append(where, e)
	}
	if f.Portal {
		where = append(where, portalExpr())
	}
	if withTab && f.Tab != nil {
		if e := tabExpr(*f.Tab, f.Today.Format(sqlDateLayout)); e != nil {
			where = append(where, e)
		}
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		where = append(where, searchExpr(term))
	}
	return where
}

// appointmentOrder is newest appointment date first, undated rows last
func appointmentOrder() []exp.OrderedExpression {
	return []exp.OrderedExpression{
		goqu.I("date_of_appointment").Desc().NullsLast(),
		goqu.I("created_at").Desc(),
	}
}
