package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/money"
	"retailops/backend/internal/xid"
)

const (
	defaultDaysPerWeek        = 5
	defaultHoursPerDay        = 8
	defaultOvertimeMultiplier = 1.5
)

// derivePay returns the daily and hourly rates for a monthly salary. Without
// an explicit daysToPay a month counts daysPerWeek*52/12 working days.
func derivePay(monthly money.Cents, daysPerWeek, hoursPerDay float64, daysToPay *float64) (money.Cents, money.Cents) {
	m := monthly.Decimal()
	var daily decimal.Decimal
	if daysToPay != nil && *daysToPay > 0 {
		daily = m.Div(decimal.NewFromFloat(*daysToPay))
	} else {
		daily = m.Mul(decimal.NewFromInt(12)).Div(decimal.NewFromFloat(daysPerWeek).Mul(decimal.NewFromInt(52)))
	}
	hourly := decimal.Zero
	if hoursPerDay > 0 {
		hourly = daily.Div(decimal.NewFromFloat(hoursPerDay))
	}
	return money.FromDecimal(daily), money.FromDecimal(hourly)
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	e, err := s.repo.GetEmployee(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Employee{}, err
	}
	return *e, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeRequest) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Employee{}, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return domain.Employee{}, invalid("name is required")
	}
	if req.SalaryMonthly == nil {
		return domain.Employee{}, invalid("salaryMonthly is required")
	}

	now := s.clock()
	e := domain.Employee{
		ID:            xid.New("emp"),
		Name:          strings.TrimSpace(*req.Name),
		SalaryMonthly: *req.SalaryMonthly,
		DaysPerWeek:   orDefault(req.DaysPerWeek, defaultDaysPerWeek),
		HoursPerDay:   orDefault(req.HoursPerDay, defaultHoursPerDay),
		DaysToPay:     positiveOrNil(req.DaysToPay),
		Extra:         req.Extra,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.Extra == nil {
		e.Extra = map[string]any{}
	}
	e.SalaryDaily, e.SalaryHourly = derivePay(e.SalaryMonthly, e.DaysPerWeek, e.HoursPerDay, e.DaysToPay)

	created, err := s.repo.CreateEmployee(ctx, e)
	if err != nil {
		return domain.Employee{}, err
	}
	logger.Info(ctx, "employee created", "id", created.ID)
	return *created, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id string, req domain.EmployeeRequest) (domain.Employee, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Employee{}, err
	}
	existing, err := s.repo.GetEmployee(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Employee{}, err
	}

	e := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Employee{}, invalid("name must not be blank")
		}
		e.Name = name
	}
	if req.SalaryMonthly != nil {
		e.SalaryMonthly = *req.SalaryMonthly
	}
	if req.DaysPerWeek != nil {
		e.DaysPerWeek = orDefault(req.DaysPerWeek, defaultDaysPerWeek)
	}
	if req.HoursPerDay != nil {
		e.HoursPerDay = orDefault(req.HoursPerDay, defaultHoursPerDay)
	}
	if req.DaysToPay != nil {
		e.DaysToPay = positiveOrNil(req.DaysToPay)
	}
	if req.Extra != nil {
		e.Extra = req.Extra
	}
	e.SalaryDaily, e.SalaryHourly = derivePay(e.SalaryMonthly, e.DaysPerWeek, e.HoursPerDay, e.DaysToPay)
	e.UpdatedAt = s.clock()

	updated, err := s.repo.UpdateEmployee(ctx, e)
	if err != nil {
		return domain.Employee{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteEmployee(ctx, strings.TrimSpace(id))
}

// RecordEvent prices a payroll event from the employee's current rates.
// A resignation also stamps the employee's resignationDate.
func (s *Service) RecordEvent(ctx context.Context, employeeID string, req domain.EmployeeEventRequest) (domain.EmployeeEvent, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.EmployeeEvent{}, err
	}
	if err := s.check(req); err != nil {
		return domain.EmployeeEvent{}, err
	}
	date, err := checkDate(req.Date)
	if err != nil {
		return domain.EmployeeEvent{}, err
	}
	employee, err := s.repo.GetEmployee(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return domain.EmployeeEvent{}, err
	}

	ev := domain.EmployeeEvent{
		ID:         xid.New("evt"),
		EmployeeID: employee.ID,
		Type:       req.Type,
		Date:       date,
		Note:       strings.TrimSpace(req.Note),
		CreatedAt:  s.clock(),
	}
	switch req.Type {
	case domain.EventExtraDay:
		ev.Amount = employee.SalaryDaily
	case domain.EventOvertime:
		if req.Hours == nil || *req.Hours <= 0 {
			return domain.EmployeeEvent{}, invalid("hours is required for overtime")
		}
		multiplier := defaultOvertimeMultiplier
		if req.Multiplier != nil {
			multiplier = *req.Multiplier
		}
		hours := *req.Hours
		ev.Hours = &hours
		ev.Multiplier = &multiplier
		ev.Amount = employee.SalaryHourly.Mul(decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(multiplier)))
	case domain.EventResignation:
		ev.Amount = 0
	}

	created, err := s.repo.CreateEmployeeEvent(ctx, ev)
	if err != nil {
		return domain.EmployeeEvent{}, err
	}
	logger.Info(ctx, "employee event recorded", "employee_id", employee.ID, "type", ev.Type, "date", date)
	return *created, nil
}

func (s *Service) ListEvents(ctx context.Context, employeeID string, start string, end string) ([]domain.EmployeeEvent, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	r := domain.EventRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if r.Start != "" && !lima.ValidDate(r.Start) {
		return nil, invalid("start must be YYYY-MM-DD")
	}
	if r.End != "" && !lima.ValidDate(r.End) {
		return nil, invalid("end must be YYYY-MM-DD")
	}
	return s.repo.ListEmployeeEvents(ctx, strings.TrimSpace(employeeID), r)
}

// DeleteEvent removes an event. Deleting a resignation clears the
// employee's resignationDate only while it still matches the event.
func (s *Service) DeleteEvent(ctx context.Context, employeeID string, eventID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	_, err := s.repo.DeleteEmployeeEvent(ctx, strings.TrimSpace(employeeID), strings.TrimSpace(eventID), s.clock())
	return err
}
