package main

import (
	"testing"
)

func TestHuntBounty(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)

	if err := node.HuntBounty("hunter-1", bountyID); err != nil {
		t.Fatalf("HuntBounty failed: %v", err)
	}

	if got := node.GetHunterBounties("hunter-1")[bountyID]; got != HunterHunting {
		t.Errorf("Expected holding state HUNTING, got %s", got)
	}
	set := node.GetHuntingSet(bountyID)
	if len(set) != 1 || set[0] != "hunter-1" {
		t.Errorf("Expected hunting set [hunter-1], got %v", set)
	}
}

func TestHuntBountyTwiceFails(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)

	if err := node.HuntBounty("hunter-1", bountyID); err != ErrAlreadyHunted {
		t.Errorf("Expected ErrAlreadyHunted, got %v", err)
	}
}

func TestHuntBountyHoldingCap(t *testing.T) {
	node := newTestNode()
	node.cfg.Genesis.MaxHoldingBounties = 2
	fund(node, "funder-1", CurrencyNative, 5000)

	var ids []BountyId
	for i := 0; i < 3; i++ {
		bountyID := mustCreate(t, node, "funder-1", 100)
		mustAccept(t, node, bountyID)
		ids = append(ids, bountyID)
	}

	mustHunt(t, node, "hunter-1", ids[0])
	mustHunt(t, node, "hunter-1", ids[1])

	if err := node.HuntBounty("hunter-1", ids[2]); err != ErrTooManyHuntedBounties {
		t.Errorf("Expected ErrTooManyHuntedBounties at the cap, got %v", err)
	}

	// Dropping one frees a slot
	if err := node.CancelHuntBounty("hunter-1", ids[0]); err != nil {
		t.Fatalf("CancelHuntBounty failed: %v", err)
	}
	if err := node.HuntBounty("hunter-1", ids[2]); err != nil {
		t.Errorf("Expected hunt to succeed after freeing a slot, got %v", err)
	}
}

func TestHuntBountyAssignedHoldingCountsTowardCap(t *testing.T) {
	node := newTestNode()
	node.cfg.Genesis.MaxHoldingBounties = 1
	fund(node, "funder-1", CurrencyNative, 5000)

	first := mustCreate(t, node, "funder-1", 100)
	mustAccept(t, node, first)
	mustHunt(t, node, "hunter-1", first)
	if err := node.AssignBounty("funder-1", first, "hunter-1"); err != nil {
		t.Fatalf("AssignBounty failed: %v", err)
	}

	second := mustCreate(t, node, "funder-1", 100)
	mustAccept(t, node, second)
	if err := node.HuntBounty("hunter-1", second); err != ErrTooManyHuntedBounties {
		t.Errorf("Expected processing holding to count toward cap, got %v", err)
	}
}

func TestCancelHuntBounty(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)

	if err := node.CancelHuntBounty("hunter-1", bountyID); err != nil {
		t.Fatalf("CancelHuntBounty failed: %v", err)
	}
	if len(node.GetHuntingSet(bountyID)) != 0 {
		t.Error("Expected empty hunting set after cancel")
	}
	if len(node.GetHunterBounties("hunter-1")) != 0 {
		t.Error("Expected empty holdings after cancel")
	}

	if err := node.CancelHuntBounty("hunter-1", bountyID); err != ErrNotHunter {
		t.Errorf("Expected ErrNotHunter on second cancel, got %v", err)
	}
}

func TestCancelHuntBountyRejectsAssignee(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)
	mustHunt(t, node, "hunter-2", bountyID)
	if err := node.AssignBounty("funder-1", bountyID, "hunter-1"); err != nil {
		t.Fatalf("AssignBounty failed: %v", err)
	}

	if err := node.CancelHuntBounty("hunter-1", bountyID); err != ErrNotHunter {
		t.Errorf("Expected ErrNotHunter for assignee cancel, got %v", err)
	}

	// The assignment and its holding survive the rejected cancel
	if assignee, ok := node.GetAssignedHunter(bountyID); !ok || assignee != "hunter-1" {
		t.Errorf("Expected hunter-1 still assigned, got %q ok=%v", assignee, ok)
	}
	if got := node.GetHunterBounties("hunter-1")[bountyID]; got != HunterProcessing {
		t.Errorf("Expected hunter-1 holding PROCESSING, got %s", got)
	}
	if err := node.SubmitBounty("hunter-1", bountyID); err != nil {
		t.Errorf("Expected submit after rejected cancel, got %v", err)
	}

	// A non-assigned hunter can still cancel
	if err := node.CancelHuntBounty("hunter-2", bountyID); err != nil {
		t.Errorf("Expected hunter-2 cancel to succeed, got %v", err)
	}
}

func TestSubmitBountyOnlyAssignee(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)
	mustHunt(t, node, "hunter-2", bountyID)
	if err := node.AssignBounty("funder-1", bountyID, "hunter-1"); err != nil {
		t.Fatalf("AssignBounty failed: %v", err)
	}

	if err := node.SubmitBounty("hunter-2", bountyID); err != ErrNotAssignee {
		t.Errorf("Expected ErrNotAssignee, got %v", err)
	}
	if err := node.SubmitBounty("hunter-1", bountyID); err != nil {
		t.Fatalf("SubmitBounty failed: %v", err)
	}

	_, state, _ := node.GetBounty(bountyID)
	if state != BountySubmitted {
		t.Errorf("Expected state Submitted, got %s", state)
	}
}

func TestResignFromBounty(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)
	mustHunt(t, node, "hunter-2", bountyID)
	if err := node.AssignBounty("funder-1", bountyID, "hunter-1"); err != nil {
		t.Fatalf("AssignBounty failed: %v", err)
	}

	if err := node.ResignFromBounty("hunter-2", bountyID); err != ErrNotAssignee {
		t.Errorf("Expected ErrNotAssignee, got %v", err)
	}
	if err := node.ResignFromBounty("hunter-1", bountyID); err != nil {
		t.Fatalf("ResignFromBounty failed: %v", err)
	}

	// Bounty re-opens and the resigner is fully detached
	_, state, _ := node.GetBounty(bountyID)
	if state != BountyAccepted {
		t.Errorf("Expected state Accepted after resign, got %s", state)
	}
	if _, ok := node.GetAssignedHunter(bountyID); ok {
		t.Error("Expected no assignee after resign")
	}
	if len(node.GetHunterBounties("hunter-1")) != 0 {
		t.Error("Expected resigner holdings cleared")
	}
	// The other hunter stays in the set
	if got := node.GetHunterBounties("hunter-2")[bountyID]; got != HunterHunting {
		t.Errorf("Expected hunter-2 still HUNTING, got %s", got)
	}

	// Resignation costs reputation
	if got := node.GetBehaviorScore("hunter-1"); got != -2 {
		t.Errorf("Expected resigner score -2, got %d", got)
	}

	// The re-opened bounty can be assigned again
	if err := node.AssignBounty("funder-1", bountyID, "hunter-2"); err != nil {
		t.Errorf("Expected re-assignment after resign, got %v", err)
	}
}

func TestRemarkBountyFunder(t *testing.T) {
	node := newTestNode()
	fund(node, "funder-1", CurrencyNative, 5000)
	bountyID := mustCreate(t, node, "funder-1", 1000)
	mustAccept(t, node, bountyID)
	mustHunt(t, node, "hunter-1", bountyID)
	mustHunt(t, node, "hunter-2", bountyID)
	if err := node.AssignBounty("funder-1", bountyID, "hunter-1"); err != nil {
		t.Fatalf("AssignBounty failed: %v", err)
	}
	if err := node.SubmitBounty("hunter-1", bountyID); err != nil {
		t.Fatalf("SubmitBounty failed: %v", err)
	}
	if err := node.ResolveBountyAndRemark("funder-1", bountyID, RemarkGood); err != nil {
		t.Fatalf("ResolveBountyAndRemark failed: %v", err)
	}

	// Only the hunter who resolved the bounty may grade the funder
	if err := node.RemarkBountyFunder("hunter-2", bountyID, RemarkPerfect); err != ErrNotAssignee {
		t.Errorf("Expected ErrNotAssignee, got %v", err)
	}
	if err := node.RemarkBountyFunder("hunter-1", bountyID, RemarkPerfect); err != nil {
		t.Fatalf("RemarkBountyFunder failed: %v", err)
	}
	if got := node.GetBehaviorScore("funder-1"); got != 5 {
		t.Errorf("Expected funder score 5 after Perfect remark, got %d", got)
	}

	// And only once
	if err := node.RemarkBountyFunder("hunter-1", bountyID, RemarkBad); err != ErrAlreadyRemarked {
		t.Errorf("Expected ErrAlreadyRemarked, got %v", err)
	}
	if got := node.GetBehaviorScore("funder-1"); got != 5 {
		t.Errorf("Expected funder score unchanged at 5, got %d", got)
	}
}

func TestHuntNonexistentBounty(t *testing.T) {
	node := newTestNode()

	if err := node.HuntBounty("hunter-1", "no-such-id"); err != ErrNotExisted {
		t.Errorf("Expected ErrNotExisted, got %v", err)
	}
	if err := node.CancelHuntBounty("hunter-1", "no-such-id"); err != ErrNotExisted {
		t.Errorf("Expected ErrNotExisted, got %v", err)
	}
	if err := node.SubmitBounty("hunter-1", "no-such-id"); err != ErrNotExisted {
		t.Errorf("Expected ErrNotExisted, got %v", err)
	}
}
