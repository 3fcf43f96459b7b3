package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/registration"
)

func TestRegistrationWorkflowOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	clk := clock.NewFake(t0)
	svc := registration.NewService(NewRegistrations(s.DB), clk, nil)

	sub := registration.Submission{
		GuildID: "g1", UserID: "u1", IngameName: "Lin", IngameUID: "123456",
		GearScore: 16280, PrimaryWeapon: "mo_dao", SecondaryWeapon: "vernal_umbrella",
	}
	reg, created, err := svc.Submit(ctx, sub)
	if err != nil || !created || reg.Status != registration.StatusPending {
		t.Fatalf("submit: %+v %v %v", reg, created, err)
	}
	if pending, _ := svc.Pending(ctx, "g1"); len(pending) != 1 {
		t.Fatalf("pending: %d", len(pending))
	}

	reg, err = svc.Approve(ctx, "g1", "u1", "admin")
	if err != nil || reg.Status != registration.StatusApproved || reg.ReviewedBy != "admin" {
		t.Fatalf("approve: %+v %v", reg, err)
	}
	if _, err := svc.Reject(ctx, "g1", "u1", "admin"); !errors.Is(err, registration.ErrNotPending) {
		t.Fatalf("want ErrNotPending, got %v", err)
	}

	got, err := svc.Get(ctx, "g1", "u1")
	if err != nil || got.Status != registration.StatusApproved || got.ReviewedAt == nil {
		t.Fatalf("get: %+v %v", got, err)
	}

	// resubmitting goes back to review
	sub.GearScore = 17000
	reg, created, err = svc.Submit(ctx, sub)
	if err != nil || created || reg.Status != registration.StatusPending {
		t.Fatalf("resubmit: %+v %v %v", reg, created, err)
	}

	if _, err := svc.UpdateStats(ctx, "g1", "u1", 18000, "Gold III"); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.Get(ctx, "g1", "u1")
	if got.GearScore != 18000 || got.ArenaRank != "Gold III" || got.Status != registration.StatusPending {
		t.Fatalf("after stats update: %+v", got)
	}

	if err := svc.Withdraw(ctx, "g1", "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "g1", "u1"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestVerificationSettingsOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	svc := registration.NewService(NewRegistrations(s.DB), clock.NewFake(t0), nil)

	if _, on, err := svc.Verification(ctx, "g1"); err != nil || on {
		t.Fatalf("unconfigured guild: on=%v err=%v", on, err)
	}
	if err := svc.DisableVerification(ctx, "g1"); !errors.Is(err, registration.ErrVerificationOff) {
		t.Fatalf("disable unconfigured: %v", err)
	}

	if _, err := svc.ConfigureVerification(ctx, registration.Settings{GuildID: "g1", ReviewChannelID: "100", PendingRoleID: "200"}); err != nil {
		t.Fatal(err)
	}
	set, on, err := svc.Verification(ctx, "g1")
	if err != nil || !on || set.ReviewChannelID != "100" || set.PendingRoleID != "200" {
		t.Fatalf("after configure: %+v on=%v err=%v", set, on, err)
	}

	if err := svc.DisableVerification(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	set, on, err = svc.Verification(ctx, "g1")
	if err != nil || on || set.ReviewChannelID != "100" {
		t.Fatalf("after disable: %+v on=%v err=%v", set, on, err)
	}

	// reconfiguring replaces every field and enables again
	if _, err := svc.ConfigureVerification(ctx, registration.Settings{GuildID: "g1", ReviewChannelID: "101", ApprovedChannelID: "300"}); err != nil {
		t.Fatal(err)
	}
	set, on, _ = svc.Verification(ctx, "g1")
	if !on || set.ReviewChannelID != "101" || set.PendingRoleID != "" || set.NotifyChannel("x") != "300" {
		t.Fatalf("after reconfigure: %+v on=%v", set, on)
	}
}
