package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

func (s *Store) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	query, args, err := s.sb.Select(employeeColumns).From("employees").OrderBy("name ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list employees: %w", err)
	}
	var rows []employeeRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	return s.getEmployee(ctx, id, false)
}

func (s *Store) getEmployee(ctx context.Context, id string, forUpdate bool) (*domain.Employee, error) {
	sel := s.sb.Select(employeeColumns).From("employees").Where(squirrel.Eq{"id": id})
	if forUpdate {
		sel = sel.Suffix("FOR UPDATE")
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select employee: %w", err)
	}
	var row employeeRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, fmt.Errorf("%w: employee %s", store.ErrNotFound, id)
		}
		return nil, err
	}
	e, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	extra, err := encodeJSON(employee.Extra)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Insert("employees").
		Columns("id", "name", "salary_monthly_cents", "salary_daily_cents", "salary_hourly_cents",
			"days_per_week", "hours_per_day", "days_to_pay", "resignation_date", "extra", "created_at", "updated_at").
		Values(employee.ID, employee.Name, int64(employee.SalaryMonthly), int64(employee.SalaryDaily),
			int64(employee.SalaryHourly), employee.DaysPerWeek, employee.HoursPerDay, ptrFloat(employee.DaysToPay),
			ptrString(employee.ResignationDate), extra, employee.CreatedAt, employee.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert employee: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, conflictOr(err, "employee "+employee.ID)
	}
	out := employee
	return &out, nil
}

// UpdateEmployee rewrites the editable columns. resignation_date is owned by
// the event operations and is left alone.
func (s *Store) UpdateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	var out *domain.Employee
	err := s.inTx(ctx, "update_employee", func(ctx context.Context) error {
		extra, err := encodeJSON(employee.Extra)
		if err != nil {
			return err
		}
		query, args, err := s.sb.Update("employees").
			SetMap(map[string]any{
				"name":                 employee.Name,
				"salary_monthly_cents": int64(employee.SalaryMonthly),
				"salary_daily_cents":   int64(employee.SalaryDaily),
				"salary_hourly_cents":  int64(employee.SalaryHourly),
				"days_per_week":        employee.DaysPerWeek,
				"hours_per_day":        employee.HoursPerDay,
				"days_to_pay":          ptrFloat(employee.DaysToPay),
				"extra":                extra,
				"updated_at":           employee.UpdatedAt,
			}).
			Where(squirrel.Eq{"id": employee.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update employee: %w", err)
		}
		res, err := s.conn(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return fmt.Errorf("%w: employee %s", store.ErrNotFound, employee.ID)
		}
		out, err = s.getEmployee(ctx, employee.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreateEmployeeEvent(ctx context.Context, event domain.EmployeeEvent) (*domain.EmployeeEvent, error) {
	err := s.inTx(ctx, "create_employee_event", func(ctx context.Context) error {
		if _, err := s.getEmployee(ctx, event.EmployeeID, true); err != nil {
			return err
		}
		query, args, err := s.sb.Insert("employee_events").
			Columns("id", "employee_id", "type", "date", "hours", "multiplier", "amount_cents", "note", "created_at").
			Values(event.ID, event.EmployeeID, event.Type, event.Date, ptrFloat(event.Hours), ptrFloat(event.Multiplier),
				int64(event.Amount), event.Note, event.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert event: %w", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
			return conflictOr(err, "event "+event.ID)
		}
		if event.Type != domain.EventResignation {
			return nil
		}
		_, err = s.conn(ctx).ExecContext(ctx,
			`UPDATE employees SET resignation_date = $1, updated_at = $2 WHERE id = $3`,
			event.Date, event.CreatedAt, event.EmployeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := event
	return &out, nil
}

func (s *Store) ListEmployeeEvents(ctx context.Context, employeeID string, r domain.EventRange) ([]domain.EmployeeEvent, error) {
	if _, err := s.getEmployee(ctx, employeeID, false); err != nil {
		return nil, err
	}
	sel := s.sb.Select(eventColumns).From("employee_events").Where(squirrel.Eq{"employee_id": employeeID})
	if r.Start != "" {
		sel = sel.Where(squirrel.GtOrEq{"date": r.Start})
	}
	if r.End != "" {
		sel = sel.Where(squirrel.LtOrEq{"date": r.End})
	}
	query, args, err := sel.OrderBy("date DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events: %w", err)
	}
	var rows []eventRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.EmployeeEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteEmployeeEvent(ctx context.Context, employeeID string, eventID string, at time.Time) (*domain.EmployeeEvent, error) {
	var deleted domain.EmployeeEvent
	err := s.inTx(ctx, "delete_employee_event", func(ctx context.Context) error {
		employee, err := s.getEmployee(ctx, employeeID, true)
		if err != nil {
			return err
		}
		query, args, err := s.sb.Select(eventColumns).From("employee_events").
			Where(squirrel.Eq{"id": eventID, "employee_id": employeeID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build select event: %w", err)
		}
		var row eventRow
		if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
			if sqlscan.NotFound(err) {
				return fmt.Errorf("%w: event %s", store.ErrNotFound, eventID)
			}
			return err
		}
		deleted = row.toDomain()

		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM employee_events WHERE id = $1`, eventID); err != nil {
			return err
		}
		if deleted.Type == domain.EventResignation && employee.ResignationDate != nil && *employee.ResignationDate == deleted.Date {
			_, err = s.conn(ctx).ExecContext(ctx,
				`UPDATE employees SET resignation_date = NULL, updated_at = $1 WHERE id = $2`, at, employeeID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
