package registration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/registration"
	"github.com/jose-valero/party-queue-bot/internal/repository/memstore"
)

func newService() (*registration.Service, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	return registration.NewService(memstore.NewRegistrations(), clk, nil), clk
}

func validSubmission() registration.Submission {
	return registration.Submission{
		GuildID: "g1", UserID: "u1", IngameName: "Lin", IngameUID: "123456",
		GearScore: 16280, PrimaryWeapon: "nameless_sword",
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	cases := map[string]func(*registration.Submission){
		"missing name":      func(s *registration.Submission) { s.IngameName = " " },
		"non numeric uid":   func(s *registration.Submission) { s.IngameUID = "abc123" },
		"unknown weapon":    func(s *registration.Submission) { s.PrimaryWeapon = "bow" },
		"same weapon twice": func(s *registration.Submission) { s.SecondaryWeapon = s.PrimaryWeapon },
		"negative gear":     func(s *registration.Submission) { s.GearScore = -1 },
	}
	for name, mutate := range cases {
		sub := validSubmission()
		mutate(&sub)
		if _, _, err := svc.Submit(ctx, sub); !errors.Is(err, registration.ErrInvalid) {
			t.Errorf("%s: want ErrInvalid, got %v", name, err)
		}
	}

	if _, created, err := svc.Submit(ctx, validSubmission()); err != nil || !created {
		t.Fatalf("valid submission: %v %v", created, err)
	}
}

func TestReviewRequiresPending(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService()
	if _, _, err := svc.Submit(ctx, validSubmission()); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Hour)
	reg, err := svc.Reject(ctx, "g1", "u1", "mod")
	if err != nil || reg.Status != registration.StatusRejected {
		t.Fatalf("reject: %+v %v", reg, err)
	}
	if !reg.ReviewedAt.Equal(clk.Now()) {
		t.Fatalf("reviewed at: %v", reg.ReviewedAt)
	}
	if _, err := svc.Approve(ctx, "g1", "u1", "mod"); !errors.Is(err, registration.ErrNotPending) {
		t.Fatalf("want ErrNotPending, got %v", err)
	}
	if _, err := svc.Approve(ctx, "g1", "nobody", "mod"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if pending, _ := svc.Pending(ctx, "g1"); len(pending) != 0 {
		t.Fatalf("pending after review: %d", len(pending))
	}
}

func TestResubmitKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService()
	first, _, err := svc.Submit(ctx, validSubmission())
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(24 * time.Hour)
	second, created, err := svc.Submit(ctx, validSubmission())
	if err != nil || created {
		t.Fatalf("resubmit: %v %v", created, err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) || !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("timestamps: created %v/%v updated %v/%v", first.CreatedAt, second.CreatedAt, first.UpdatedAt, second.UpdatedAt)
	}
}

func TestParseGearScore(t *testing.T) {
	cases := map[string]int{
		"16280":  16280,
		"16.28":  16280,
		"1.628":  1628,
		"1.82🦆": 1820,
		"42":     42000,
	}
	for in, want := range cases {
		got, err := registration.ParseGearScore(in)
		if err != nil || got != want {
			t.Errorf("ParseGearScore(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "abc", "-5"} {
		if _, err := registration.ParseGearScore(bad); !errors.Is(err, registration.ErrInvalid) {
			t.Errorf("ParseGearScore(%q) should fail", bad)
		}
	}
	if got := registration.FormatGearScore(16280); got != "16.28🦆" {
		t.Fatalf("FormatGearScore: %s", got)
	}
}

func TestConfigureVerificationValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	bad := []registration.Settings{
		{GuildID: "g1"},
		{GuildID: "g1", ReviewChannelID: "#general"},
		{GuildID: "g1", ReviewChannelID: "100", PendingRoleID: "200", ApprovedRoleID: "200"},
	}
	for _, set := range bad {
		if _, err := svc.ConfigureVerification(ctx, set); !errors.Is(err, registration.ErrInvalidSettings) {
			t.Errorf("%+v: want ErrInvalidSettings, got %v", set, err)
		}
	}
	set, err := svc.ConfigureVerification(ctx, registration.Settings{GuildID: "g1", ReviewChannelID: "100"})
	if err != nil || !set.Enabled {
		t.Fatalf("configure: %+v %v", set, err)
	}
	if got := set.NotifyChannel("555"); got != "555" {
		t.Fatalf("notify channel without approved channel: %s", got)
	}
}

func TestNeedsReview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	reg, _, err := svc.Submit(ctx, validSubmission())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := svc.NeedsReview(ctx, reg, nil); err != nil || ok {
		t.Fatalf("verification off: ok=%v err=%v", ok, err)
	}

	if _, err := svc.ConfigureVerification(ctx, registration.Settings{GuildID: "g1", ReviewChannelID: "100", PendingRoleID: "200"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := svc.NeedsReview(ctx, reg, []string{"999"}); ok {
		t.Fatal("member without the pending role was sent to review")
	}
	set, ok, err := svc.NeedsReview(ctx, reg, []string{"999", "200"})
	if err != nil || !ok || set.ReviewChannelID != "100" {
		t.Fatalf("pending member: %+v ok=%v err=%v", set, ok, err)
	}

	approved, err := svc.Approve(ctx, "g1", "u1", "mod")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := svc.NeedsReview(ctx, approved, []string{"200"}); ok {
		t.Fatal("approved profile sent to review again")
	}

	if err := svc.DisableVerification(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := svc.NeedsReview(ctx, reg, []string{"200"}); ok {
		t.Fatal("review after disable")
	}
	if err := svc.DisableVerification(ctx, "g1"); !errors.Is(err, registration.ErrVerificationOff) {
		t.Fatalf("second disable: %v", err)
	}
}
