package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/ratelimit"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/token"
)

// newIntakeService wires a full pipeline over a fresh database. The limiter
// allows `limit` submissions per hour against a clock fixed at `at`.
func newIntakeService(t *testing.T, at time.Time, limit int) (*IntakeService, *time.Time) {
	t.Helper()

	now := at
	codec, err := token.NewCodec("test-secret-0123456789", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	codec.Now = func() time.Time { return now }

	db := newServicesDB(t)
	audit := &AuditService{DB: db}
	limiter := ratelimit.NewWindow(limit, time.Hour)
	limiter.Now = func() time.Time { return now }

	svc := &IntakeService{
		DB: db,
		Sessions: &SessionService{
			DB:    db,
			Codec: codec,
			Audit: audit,
			Now:   func() time.Time { return now },
		},
		Audit:            audit,
		Limiter:          limiter,
		ChatBaseURL:      "https://chat.example.com",
		DefaultWorkspace: "default",
	}
	return svc, &now
}

func validInput() SubmitInput {
	return SubmitInput{
		Name:  "John Doe",
		Email: "john@example.com",
		Phone: "+1234567890",
	}
}

func TestSubmit_Success(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	res, err := svc.Submit(context.Background(), validInput(), RequestMeta{IP: "1.2.3.4", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Contact == nil || res.Contact.Email != "john@example.com" {
		t.Fatalf("unexpected contact: %+v", res.Contact)
	}
	if res.Session == nil || res.Session.Status != domain.SessionPending {
		t.Fatalf("unexpected session: %+v", res.Session)
	}
	if len(res.Session.SessionToken) <= 10 {
		t.Fatalf("session token too short: %q", res.Session.SessionToken)
	}
	if !res.Session.ExpiresAt.After(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expires_at not in the future: %v", res.Session.ExpiresAt)
	}
	if want := "https://chat.example.com/embed/default?token=" + res.Session.SessionToken; res.ChatURL != want {
		t.Fatalf("chat url = %q, want %q", res.ChatURL, want)
	}

	// One success submission row, linked to the contact.
	subs, err := repo.ListSubmissionsPage(context.Background(), svc.DB, 0, 10)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != domain.SubmissionSuccess {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
	if subs[0].ContactID == nil || *subs[0].ContactID != res.Contact.ID {
		t.Fatalf("submission not linked to contact: %+v", subs[0].ContactID)
	}
}

func TestSubmit_DedupByEmail(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	first, err := svc.Submit(context.Background(), SubmitInput{
		Name:    "John Doe",
		Email:   "John@Example.COM",
		Phone:   "+1234567890",
		Country: "greece",
	}, RequestMeta{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second, err := svc.Submit(context.Background(), SubmitInput{
		Name:  "Johnny Doe",
		Email: "john@example.com",
	}, RequestMeta{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if first.Contact.ID != second.Contact.ID {
		t.Fatalf("dedup failed: %q vs %q", first.Contact.ID, second.Contact.ID)
	}
	n, err := repo.CountContacts(context.Background(), svc.DB)
	if err != nil {
		t.Fatalf("CountContacts: %v", err)
	}
	if n != 1 {
		t.Fatalf("contacts = %d, want 1", n)
	}

	// The latest name wins; blank optional fields keep what was on file.
	got, err := repo.GetContact(context.Background(), svc.DB, first.Contact.ID)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Name != "Johnny Doe" {
		t.Fatalf("name = %q, want Johnny Doe", got.Name)
	}
	if got.Phone != "1234567890" || got.Country != "Greece" {
		t.Fatalf("optional fields lost on re-submit: %+v", got)
	}

	// Each submission mints its own session.
	sessions, err := repo.CountSessions(context.Background(), svc.DB)
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if sessions != 2 {
		t.Fatalf("sessions = %d, want 2", sessions)
	}
	if first.Session.SessionToken == second.Session.SessionToken {
		t.Fatalf("session tokens must be unique per submission")
	}
}

func TestSubmit_ValidationFailure(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Name:  "",
		Email: "invalid-email",
	}, RequestMeta{IP: "1.2.3.4"})
	ferrs, ok := AsFieldErrors(err)
	if !ok {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if _, ok := ferrs["name"]; !ok {
		t.Fatalf("expected a name error, got %v", ferrs)
	}
	if _, ok := ferrs["email"]; !ok {
		t.Fatalf("expected an email error, got %v", ferrs)
	}

	// A rejected attempt still leaves an immutable submission row but no
	// contact and no session.
	subs, err := repo.ListSubmissionsPage(context.Background(), svc.DB, 0, 10)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != domain.SubmissionValidationError {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
	if subs[0].Errors == "" || !strings.Contains(subs[0].Errors, "email") {
		t.Fatalf("errors not captured: %q", subs[0].Errors)
	}
	if n, _ := repo.CountContacts(context.Background(), svc.DB); n != 0 {
		t.Fatalf("contacts = %d, want 0", n)
	}
	if n, _ := repo.CountSessions(context.Background(), svc.DB); n != 0 {
		t.Fatalf("sessions = %d, want 0", n)
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 2)
	meta := RequestMeta{IP: "9.9.9.9"}

	for i := 0; i < 2; i++ {
		in := validInput()
		if _, err := svc.Submit(context.Background(), in, meta); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}
	if _, err := svc.Submit(context.Background(), validInput(), meta); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third submit = %v, want ErrRateLimited", err)
	}

	// The throttled attempt records only the throttle row.
	lim, err := repo.CountSubmissionsByStatus(context.Background(), svc.DB, domain.SubmissionRateLimited)
	if err != nil {
		t.Fatalf("count rate_limited: %v", err)
	}
	if lim != 1 {
		t.Fatalf("rate_limited rows = %d, want 1", lim)
	}
	if n, _ := repo.CountSessions(context.Background(), svc.DB); n != 2 {
		t.Fatalf("sessions = %d, want 2 (throttled attempt must not mint)", n)
	}

	// A different client is unaffected.
	if _, err := svc.Submit(context.Background(), validInput(), RequestMeta{IP: "8.8.8.8"}); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestSubmit_ServerErrorRecorded(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	// Make session minting fail after the submission row is written.
	if err := svc.DB.Migrator().DropTable(&domain.Session{}); err != nil {
		t.Fatalf("drop sessions: %v", err)
	}

	_, err := svc.Submit(context.Background(), validInput(), RequestMeta{IP: "1.2.3.4"})
	if err == nil {
		t.Fatalf("expected a storage error")
	}
	if _, isFields := AsFieldErrors(err); isFields || errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected a storage error, got %v", err)
	}

	// The row written before the failure must reflect the outcome the client saw.
	subs, lerr := repo.ListSubmissionsPage(context.Background(), svc.DB, 0, 10)
	if lerr != nil {
		t.Fatalf("list submissions: %v", lerr)
	}
	if len(subs) != 1 || subs[0].Status != domain.SubmissionServerError {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
}

func TestSubmit_ReturnURLWins(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	in := validInput()
	in.ReturnURL = "https://shop.example.com/checkout?step=2"
	res, err := svc.Submit(context.Background(), in, RequestMeta{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(res.ChatURL, "https://shop.example.com/checkout?") {
		t.Fatalf("return_url not honored: %q", res.ChatURL)
	}
	if !strings.Contains(res.ChatURL, "step=2") || !strings.Contains(res.ChatURL, "token="+res.Session.SessionToken) {
		t.Fatalf("query not preserved or token missing: %q", res.ChatURL)
	}
}

func TestSubmit_WorkspaceDefaulting(t *testing.T) {
	svc, _ := newIntakeService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 5)

	in := validInput()
	in.Workspace = "sales"
	res, err := svc.Submit(context.Background(), in, RequestMeta{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Session.Workspace != "sales" {
		t.Fatalf("workspace = %q, want sales", res.Session.Workspace)
	}
	if !strings.Contains(res.ChatURL, "/embed/sales?") {
		t.Fatalf("workspace missing from chat url: %q", res.ChatURL)
	}
}

func TestValidateSubmit(t *testing.T) {
	cases := []struct {
		name      string
		in        SubmitInput
		wantField string
	}{
		{"missing name", SubmitInput{Email: "a@b.com"}, "name"},
		{"short name", SubmitInput{Name: "J", Email: "a@b.com"}, "name"},
		{"long name", SubmitInput{Name: strings.Repeat("x", 256), Email: "a@b.com"}, "name"},
		{"missing email", SubmitInput{Name: "John"}, "email"},
		{"bad email", SubmitInput{Name: "John", Email: "invalid-email"}, "email"},
		{"short phone", SubmitInput{Name: "John", Email: "a@b.com", Phone: "12345"}, "phone"},
		{"long phone", SubmitInput{Name: "John", Email: "a@b.com", Phone: strings.Repeat("1", 16)}, "phone"},
		{"long country", SubmitInput{Name: "John", Email: "a@b.com", Country: strings.Repeat("x", 101)}, "country"},
		{"long message", SubmitInput{Name: "John", Email: "a@b.com", Message: strings.Repeat("x", 1001)}, "message"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ferrs := validateSubmit(tc.in)
			if len(ferrs) == 0 {
				t.Fatalf("expected a %s error, got none", tc.wantField)
			}
			if _, ok := ferrs[tc.wantField]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.wantField, ferrs)
			}
		})
	}
}

func TestValidateSubmit_MultibyteLengths(t *testing.T) {
	// Limits count characters, not bytes: a one-character CJK name is still
	// too short, and a CJK country well under 100 characters must pass even
	// though it exceeds 100 bytes.
	_, ferrs := validateSubmit(SubmitInput{Name: "李", Email: "a@b.com"})
	if _, ok := ferrs["name"]; !ok {
		t.Fatalf("one-character name must fail the minimum, got %v", ferrs)
	}

	clean, ferrs := validateSubmit(SubmitInput{
		Name:    "李四",
		Email:   "a@b.com",
		Country: strings.Repeat("国", 50),
	})
	if len(ferrs) != 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if clean.Name != "李四" {
		t.Fatalf("name = %q", clean.Name)
	}

	// Boundary checks at the character limits.
	_, ferrs = validateSubmit(SubmitInput{
		Name:    strings.Repeat("名", 255),
		Email:   "a@b.com",
		Message: strings.Repeat("文", 1000),
	})
	if len(ferrs) != 0 {
		t.Fatalf("limits must admit exactly 255/1000 characters: %v", ferrs)
	}
	_, ferrs = validateSubmit(SubmitInput{
		Name:    strings.Repeat("名", 256),
		Email:   "a@b.com",
		Country: strings.Repeat("国", 101),
		Message: strings.Repeat("文", 1001),
	})
	for _, f := range []string{"name", "country", "message"} {
		if _, ok := ferrs[f]; !ok {
			t.Fatalf("expected a %s error one character past the limit, got %v", f, ferrs)
		}
	}
}

func TestValidateSubmit_Normalization(t *testing.T) {
	clean, ferrs := validateSubmit(SubmitInput{
		Name:    "  John Doe  ",
		Email:   "  John@Example.COM ",
		Phone:   "+1 (555) 010-7788",
		Country: "united kingdom",
	})
	if len(ferrs) != 0 {
		t.Fatalf("unexpected errors: %v", ferrs)
	}
	if clean.Name != "John Doe" {
		t.Fatalf("name = %q", clean.Name)
	}
	if clean.Email != "john@example.com" {
		t.Fatalf("email = %q", clean.Email)
	}
	if clean.Phone != "15550107788" {
		t.Fatalf("phone = %q, want digits only", clean.Phone)
	}
	if clean.Country != "United Kingdom" {
		t.Fatalf("country = %q, want United Kingdom", clean.Country)
	}
}

func TestBuildChatURL(t *testing.T) {
	base := "https://chat.example.com/"

	got := buildChatURL(base, "support", "", "tok123")
	if got != "https://chat.example.com/embed/support?token=tok123" {
		t.Fatalf("default url = %q", got)
	}

	got = buildChatURL(base, "support", "https://a.example.com/p?x=1", "tok123")
	if !strings.HasPrefix(got, "https://a.example.com/p?") ||
		!strings.Contains(got, "x=1") || !strings.Contains(got, "token=tok123") {
		t.Fatalf("return url = %q", got)
	}

	// A relative or unparseable return_url falls back to the default.
	got = buildChatURL(base, "support", "/relative/path", "tok123")
	if got != "https://chat.example.com/embed/support?token=tok123" {
		t.Fatalf("fallback url = %q", got)
	}
}
