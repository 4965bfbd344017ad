package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
	"retailops/backend/internal/store"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestDerivePay(t *testing.T) {
	cases := []struct {
		name          string
		monthly       money.Cents
		days, hours   float64
		daysToPay     *float64
		daily, hourly money.Cents
	}{
		{"weekly schedule", 300000, 5, 8, nil, 13846, 1731},
		{"explicit days", 300000, 5, 8, floatPtr(30), 10000, 1250},
		{"six day week", 260000, 6, 10, nil, 10000, 1000},
		{"no hours", 300000, 5, 0, floatPtr(25), 12000, 0},
	}
	for _, tc := range cases {
		daily, hourly := derivePay(tc.monthly, tc.days, tc.hours, tc.daysToPay)
		if daily != tc.daily || hourly != tc.hourly {
			t.Fatalf("%s: expected %d/%d, got %d/%d", tc.name, tc.daily, tc.hourly, daily, hourly)
		}
	}
}

func TestEmployeeDefaultsAndEvents(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateEmployee(ctx, domain.EmployeeRequest{Name: strPtr("Rosa")}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected salaryMonthly to be required, got %v", err)
	}

	emp, err := svc.CreateEmployee(ctx, domain.EmployeeRequest{
		Name:          strPtr(" Rosa "),
		SalaryMonthly: cents(300000),
		DaysPerWeek:   floatPtr(0),
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if emp.DaysPerWeek != 5 || emp.HoursPerDay != 8 || emp.Name != "Rosa" {
		t.Fatalf("expected defaults applied, got %+v", emp)
	}
	if emp.SalaryDaily != 13846 || emp.SalaryHourly != 1731 {
		t.Fatalf("unexpected derived pay %d/%d", emp.SalaryDaily, emp.SalaryHourly)
	}

	extra, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: domain.EventExtraDay, Date: "2026-02-10"})
	if err != nil || extra.Amount != 13846 {
		t.Fatalf("extra day: amount=%d err=%v", extra.Amount, err)
	}
	overtime, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: domain.EventOvertime, Date: "2026-02-11", Hours: floatPtr(2)})
	if err != nil {
		t.Fatalf("overtime: %v", err)
	}
	if overtime.Amount != 5193 || *overtime.Multiplier != 1.5 {
		t.Fatalf("expected 17.31*2*1.5 = 51.93, got %d", overtime.Amount)
	}
	if _, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: domain.EventOvertime, Date: "2026-02-11"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected overtime without hours to fail, got %v", err)
	}
	if _, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: "bonus", Date: "2026-02-11"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown event type to fail, got %v", err)
	}

	resign, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: domain.EventResignation, Date: "2026-02-28"})
	if err != nil || resign.Amount != 0 {
		t.Fatalf("resignation: amount=%d err=%v", resign.Amount, err)
	}
	got, _ := svc.GetEmployee(ctx, emp.ID)
	if got.ResignationDate == nil || *got.ResignationDate != "2026-02-28" {
		t.Fatalf("expected resignation date stamped, got %v", got.ResignationDate)
	}

	events, err := svc.ListEvents(ctx, emp.ID, "2026-02-11", "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 || events[0].Date != "2026-02-28" {
		t.Fatalf("expected 2 events newest first, got %+v", events)
	}
	if _, err := svc.ListEvents(ctx, "emp_missing", "", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown employee, got %v", err)
	}

	if err := svc.DeleteEvent(ctx, emp.ID, resign.ID); err != nil {
		t.Fatalf("delete resignation: %v", err)
	}
	got, _ = svc.GetEmployee(ctx, emp.ID)
	if got.ResignationDate != nil {
		t.Fatalf("expected resignation date cleared")
	}
	if err := svc.DeleteEvent(ctx, emp.ID, resign.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUpdateEmployeeRecomputesAndKeepsResignation(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	emp, err := svc.CreateEmployee(ctx, domain.EmployeeRequest{Name: strPtr("Luis"), SalaryMonthly: cents(300000)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.RecordEvent(ctx, emp.ID, domain.EmployeeEventRequest{Type: domain.EventResignation, Date: "2026-02-15"}); err != nil {
		t.Fatalf("resign: %v", err)
	}

	updated, err := svc.UpdateEmployee(ctx, emp.ID, domain.EmployeeRequest{DaysToPay: floatPtr(30)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SalaryDaily != 10000 || updated.SalaryHourly != 1250 {
		t.Fatalf("expected rates from daysToPay, got %d/%d", updated.SalaryDaily, updated.SalaryHourly)
	}
	if updated.ResignationDate == nil || *updated.ResignationDate != "2026-02-15" {
		t.Fatalf("update must not touch resignationDate")
	}

	all, err := svc.ListEmployees(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v (%d)", err, len(all))
	}
}

func TestStoreRentDaily(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	st, err := svc.CreateStore(ctx, domain.StoreRequest{ID: "3", Name: strPtr("Tienda Sur"), RentMonthly: cents(100000)})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if st.RentDaily != 3333 {
		t.Fatalf("expected 1000.00/30 = 33.33, got %s", st.RentDaily)
	}
	if _, err := svc.CreateStore(ctx, domain.StoreRequest{ID: "3"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	st, err = svc.UpdateStore(ctx, "3", domain.StoreRequest{RentMonthly: cents(200000)})
	if err != nil {
		t.Fatalf("update store: %v", err)
	}
	if st.RentDaily != 6667 || st.Name != "Tienda Sur" {
		t.Fatalf("unexpected store after update %+v", st)
	}

	generated, err := svc.CreateStore(ctx, domain.StoreRequest{})
	if err != nil || !strings.HasPrefix(generated.ID, "sto_") {
		t.Fatalf("expected generated id, got %q (%v)", generated.ID, err)
	}

	stores, err := svc.ListStores(workerCtx())
	if err != nil || len(stores) != 4 {
		t.Fatalf("expected 4 stores, got %d (%v)", len(stores), err)
	}
	if err := svc.DeleteStore(workerCtx(), "3"); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("worker must not delete stores, got %v", err)
	}
}

func TestAccountsLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	created, err := svc.EnsureAdmin(context.Background(), "root", "s3cret-pass")
	if err != nil || !created {
		t.Fatalf("ensure admin: created=%v err=%v", created, err)
	}
	created, err = svc.EnsureAdmin(context.Background(), "root", "other")
	if err != nil || created {
		t.Fatalf("second ensure must be a no-op: created=%v err=%v", created, err)
	}

	account, err := svc.Authenticate(context.Background(), "root", "s3cret-pass")
	if err != nil || account.Role != domain.RoleAdmin {
		t.Fatalf("authenticate: %+v %v", account, err)
	}
	if _, err := svc.Authenticate(context.Background(), "root", "wrong"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost", "x"); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}

	worker, err := svc.Signup(ctx, domain.SignupRequest{Username: "caja1", Password: "caja-pass"})
	if err != nil || worker.Role != domain.RoleWorker {
		t.Fatalf("signup: %+v %v", worker, err)
	}
	if _, err := svc.Signup(ctx, domain.SignupRequest{Username: "caja1", Password: "caja-pass"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Signup(ctx, domain.SignupRequest{Username: "ab", Password: "caja-pass"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected short username rejected, got %v", err)
	}

	if _, err := svc.UpdateAccount(ctx, worker.UID, domain.AccountUpdateRequest{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected empty update rejected, got %v", err)
	}
	if _, err := svc.UpdateAccount(ctx, worker.UID, domain.AccountUpdateRequest{Username: strPtr("root")}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate username conflict, got %v", err)
	}
	if _, err := svc.UpdateAccount(ctx, worker.UID, domain.AccountUpdateRequest{Password: strPtr("new-pass-1")}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "caja1", "new-pass-1"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}

	accounts, err := svc.ListAccounts(ctx)
	if err != nil || len(accounts) != 2 {
		t.Fatalf("list accounts: %d %v", len(accounts), err)
	}
	if err := svc.DeleteAccount(ctx, worker.UID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

type fakeImages struct {
	lastKey         string
	lastContentType string
	lastTTL         time.Duration
	deleted         []string
}

func (f *fakeImages) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.lastKey, f.lastTTL = key, ttl
	return "https://signed.example/" + key, nil
}

func (f *fakeImages) PresignPut(_ context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	f.lastKey, f.lastContentType, f.lastTTL = key, contentType, ttl
	return "https://signed.example/" + key + "?put", nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeImages) PublicURL(key string) string { return "https://cdn.example/" + key }

func TestImagesRequireStorage(t *testing.T) {
	svc := newTestService()
	if _, err := svc.SignImageGet(workerCtx(), "images/a.png"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected unavailable without storage, got %v", err)
	}
}

func TestImageSigning(t *testing.T) {
	images := &fakeImages{}
	svc := New(nil, Options{Images: images, Now: func() time.Time { return fixedNow }})

	got, err := svc.SignImageGet(workerCtx(), "images/a.png")
	if err != nil || got.PublicURL != "https://cdn.example/images/a.png" || images.lastTTL != time.Minute {
		t.Fatalf("sign get: %+v ttl=%s err=%v", got, images.lastTTL, err)
	}
	if _, err := svc.SignImageGet(workerCtx(), "../etc/passwd"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid key, got %v", err)
	}

	up, err := svc.SignImageUpload(adminCtx(), domain.ImageRequest{Ext: "PNG", ExpiresIn: 300}, true)
	if err != nil {
		t.Fatalf("sign upload: %v", err)
	}
	if !strings.HasPrefix(up.Key, "images/") || !strings.HasSuffix(up.Key, ".png") {
		t.Fatalf("unexpected generated key %s", up.Key)
	}
	if images.lastContentType != "image/png" || images.lastTTL != 5*time.Minute {
		t.Fatalf("unexpected presign args %s %s", images.lastContentType, images.lastTTL)
	}
	if _, err := svc.SignImageUpload(adminCtx(), domain.ImageRequest{}, false); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("PUT without key must fail, got %v", err)
	}
	if _, err := svc.SignImageUpload(workerCtx(), domain.ImageRequest{Key: "images/a.png"}, false); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("worker must not upload, got %v", err)
	}

	if err := svc.DeleteImage(adminCtx(), "images/a.png"); err != nil || len(images.deleted) != 1 {
		t.Fatalf("delete: %v", err)
	}
}
