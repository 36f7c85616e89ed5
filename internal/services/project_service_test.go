package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/repository"
	"github.com/pivote/backend/internal/settlement"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func newTestService(store repository.Store) *ProjectService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProjectService(store, logger, WithClock(func() time.Time { return fixedNow }), WithSettleConcurrency(3))
}

func mustCreateProject(t *testing.T, svc *ProjectService, creator uuid.UUID, maxPoints int64) *models.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), CreateProjectCmd{
		CreatorID: creator, Title: "Will the bridge open in May?", MaxPointsPerOption: maxPoints,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func mustVote(t *testing.T, svc *ProjectService, projectID, voter uuid.UUID, opt models.Option, points int64) {
	t.Helper()
	if _, err := svc.CastVote(context.Background(), CastVoteCmd{ProjectID: projectID, VoterID: voter, Option: opt, Points: points}); err != nil {
		t.Fatalf("CastVote(%s, %d): %v", opt, points, err)
	}
}

func assertPoints(t *testing.T, store *memStore, id uuid.UUID, total, frozen int64) {
	t.Helper()
	u := store.user(id)
	if u.TotalPoints != total || u.FrozenPoints != frozen {
		t.Errorf("user %s: total/frozen = %d/%d, want %d/%d", u.Username, u.TotalPoints, u.FrozenPoints, total, frozen)
	}
}

// ---------------------------------------------------------------------------
// CreateProject
// ---------------------------------------------------------------------------

func TestCreateProject_FreezesCoverage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	creator := store.addUser("carol", 5000)

	p := mustCreateProject(t, svc, creator.ID, 1000)

	if p.FrozenPoints != 1000 {
		t.Errorf("FrozenPoints = %d, want 1000", p.FrozenPoints)
	}
	assertPoints(t, store, creator.ID, 5000, 1000)

	entries := store.entriesFor(creator.ID)
	if len(entries) != 1 || entries[0].Type != models.EntryProjectFreeze {
		t.Fatalf("entries = %+v, want one project_freeze", entries)
	}
	if entries[0].FrozenDelta != 1000 || entries[0].Delta != 0 {
		t.Errorf("freeze entry delta/frozen = %d/%d, want 0/1000", entries[0].Delta, entries[0].FrozenDelta)
	}
}

func TestCreateProject_InsufficientPoints(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	creator := store.addUser("carol", 500)

	_, err := svc.CreateProject(context.Background(), CreateProjectCmd{CreatorID: creator.ID, Title: "t", MaxPointsPerOption: 1000})
	if !errors.Is(err, ledger.ErrInsufficientPoints) {
		t.Fatalf("got %v, want ErrInsufficientPoints", err)
	}
	assertPoints(t, store, creator.ID, 500, 0)
	if len(store.projects) != 0 {
		t.Errorf("projects = %d, want 0", len(store.projects))
	}
}

func TestCreateProject_Validation(t *testing.T) {
	svc := newTestService(newMemStore())
	cases := []CreateProjectCmd{
		{CreatorID: uuid.New(), Title: "  ", MaxPointsPerOption: 10},
		{CreatorID: uuid.New(), Title: "ok", MaxPointsPerOption: 0},
	}
	for _, cmd := range cases {
		if _, err := svc.CreateProject(context.Background(), cmd); !errors.Is(err, ErrValidation) {
			t.Errorf("CreateProject(%+v) = %v, want ErrValidation", cmd, err)
		}
	}
}

// ---------------------------------------------------------------------------
// CastVote
// ---------------------------------------------------------------------------

func TestCastVote_FreezesStake(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	creator := store.addUser("carol", 5000)
	alice := store.addUser("alice", 1000)
	p := mustCreateProject(t, svc, creator.ID, 1000)

	vote, err := svc.CastVote(context.Background(), CastVoteCmd{ProjectID: p.ID, VoterID: alice.ID, Option: models.OptionYes, Points: 300})
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if vote.Points != 300 || vote.Option != models.OptionYes {
		t.Errorf("vote = %+v", vote)
	}
	assertPoints(t, store, alice.ID, 1000, 300)

	got, _ := store.GetProject(context.Background(), p.ID)
	if got.Votes[models.OptionYes] != 300 {
		t.Errorf("Votes[yes] = %d, want 300", got.Votes[models.OptionYes])
	}
	if len(got.VoteDetails) != 1 || got.VoteDetails[0].ID != vote.ID {
		t.Errorf("VoteDetails = %+v, want the cast vote", got.VoteDetails)
	}
}

func TestCastVote_Rejections(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		setup   func(svc *ProjectService, p *models.Project, creator, voter uuid.UUID)
		points  int64
		wantErr error
	}{
		{
			name:    "over the ceiling",
			setup:   func(*ProjectService, *models.Project, uuid.UUID, uuid.UUID) {},
			points:  1001,
			wantErr: ErrVoteRejected,
		},
		{
			name:    "more than available",
			setup:   func(*ProjectService, *models.Project, uuid.UUID, uuid.UUID) {},
			points:  600,
			wantErr: ledger.ErrInsufficientPoints,
		},
		{
			name: "paused",
			setup: func(svc *ProjectService, p *models.Project, creator, _ uuid.UUID) {
				svc.Pause(ctx, p.ID, creator)
			},
			points:  10,
			wantErr: ErrVoteRejected,
		},
		{
			name: "published",
			setup: func(svc *ProjectService, p *models.Project, creator, _ uuid.UUID) {
				svc.PublishResult(ctx, PublishResultCmd{ProjectID: p.ID, ActorID: creator, Result: models.OptionNo})
			},
			points:  10,
			wantErr: ErrVoteRejected,
		},
		{
			name: "hidden by voter",
			setup: func(svc *ProjectService, p *models.Project, _, voter uuid.UUID) {
				svc.HideProject(ctx, p.ID, voter)
			},
			points:  10,
			wantErr: ErrVoteRejected,
		},
		{
			name: "hidden by creator",
			setup: func(svc *ProjectService, p *models.Project, creator, _ uuid.UUID) {
				svc.store.(*memStore).hide(creator, p.ID)
			},
			points:  10,
			wantErr: settlement.ErrProjectUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestService(store)
			creator := store.addUser("carol", 5000)
			voter := store.addUser("vic", 500)
			p := mustCreateProject(t, svc, creator.ID, 1000)
			tc.setup(svc, p, creator.ID, voter.ID)

			_, err := svc.CastVote(ctx, CastVoteCmd{ProjectID: p.ID, VoterID: voter.ID, Option: models.OptionYes, Points: tc.points})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
			assertPoints(t, store, voter.ID, 500, 0)
		})
	}
}

func TestCastVote_InvalidArguments(t *testing.T) {
	svc := newTestService(newMemStore())
	cases := []CastVoteCmd{
		{ProjectID: uuid.New(), VoterID: uuid.New(), Option: "maybe", Points: 1},
		{ProjectID: uuid.New(), VoterID: uuid.New(), Option: models.OptionNo, Points: 0},
	}
	for _, cmd := range cases {
		if _, err := svc.CastVote(context.Background(), cmd); !errors.Is(err, ErrValidation) {
			t.Errorf("CastVote(%+v) = %v, want ErrValidation", cmd, err)
		}
	}
}

func TestCastVote_ConcurrentVotesRespectCeiling(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	creator := store.addUser("carol", 5000)
	p := mustCreateProject(t, svc, creator.ID, 1000)

	var voters []models.User
	for i := 0; i < 20; i++ {
		voters = append(voters, store.addUser(uuid.NewString(), 100))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, v := range voters {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), CastVoteCmd{ProjectID: p.ID, VoterID: id, Option: models.OptionYes, Points: 100})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, ErrVoteRejected) {
				t.Errorf("unexpected error: %v", err)
			}
		}(v.ID)
	}
	wg.Wait()

	if accepted != 10 {
		t.Errorf("accepted = %d, want 10", accepted)
	}
	got, _ := store.GetProject(context.Background(), p.ID)
	if got.Votes[models.OptionYes] != 1000 {
		t.Errorf("Votes[yes] = %d, want 1000", got.Votes[models.OptionYes])
	}
}

// ---------------------------------------------------------------------------
// PublishResult
// ---------------------------------------------------------------------------

func TestPublishResult_WorkedExample(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	alice := store.addUser("alice", 1000)
	bob := store.addUser("bob", 1000)
	p := mustCreateProject(t, svc, carol.ID, 1000)
	mustVote(t, svc, p.ID, alice.ID, models.OptionYes, 300)
	mustVote(t, svc, p.ID, bob.ID, models.OptionNo, 200)
	before := store.totalPoints()

	out, err := svc.PublishResult(context.Background(), PublishResultCmd{ProjectID: p.ID, ActorID: carol.ID, Result: models.OptionYes})
	if err != nil {
		t.Fatalf("PublishResult: %v", err)
	}

	assertPoints(t, store, alice.ID, 1300, 0)
	assertPoints(t, store, bob.ID, 800, 0)
	assertPoints(t, store, carol.ID, 4900, 0)
	if after := store.totalPoints(); after != before {
		t.Errorf("total points = %d, want %d (conservation)", after, before)
	}
	if out.Net() != 0 {
		t.Errorf("Net() = %d, want 0", out.Net())
	}

	got, _ := store.GetProject(context.Background(), p.ID)
	if !got.ResultPublished || got.Result == nil || *got.Result != models.OptionYes {
		t.Errorf("project not marked settled: %+v", got)
	}
	if len(store.settled) != 1 || store.settled[0] != p.ID {
		t.Errorf("settled hook calls = %v, want [%s]", store.settled, p.ID)
	}

	bobEntries := store.entriesFor(bob.ID)
	last := bobEntries[len(bobEntries)-1]
	if last.Type != models.EntryVotePenalty || last.Delta != -200 {
		t.Errorf("bob last entry = %s %d, want vote_penalty -200", last.Type, last.Delta)
	}
}

func TestPublishResult_OnlyCreatorOrAdmin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	mallory := store.addUser("mallory", 0)
	p := mustCreateProject(t, svc, carol.ID, 1000)

	_, err := svc.PublishResult(context.Background(), PublishResultCmd{ProjectID: p.ID, ActorID: mallory.ID, Result: models.OptionYes})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}

	if _, err := svc.PublishResult(context.Background(), PublishResultCmd{ProjectID: p.ID, Result: models.OptionYes, Admin: true}); err != nil {
		t.Fatalf("admin publish: %v", err)
	}
	assertPoints(t, store, carol.ID, 5000, 0)
}

func TestPublishResult_Twice(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	alice := store.addUser("alice", 1000)
	p := mustCreateProject(t, svc, carol.ID, 1000)
	mustVote(t, svc, p.ID, alice.ID, models.OptionYes, 300)

	cmd := PublishResultCmd{ProjectID: p.ID, ActorID: carol.ID, Result: models.OptionYes}
	if _, err := svc.PublishResult(context.Background(), cmd); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	afterFirst := store.user(alice.ID)

	cmd.Result = models.OptionNo
	_, err := svc.PublishResult(context.Background(), cmd)
	if !errors.Is(err, settlement.ErrAlreadySettled) {
		t.Fatalf("got %v, want ErrAlreadySettled", err)
	}
	if got := store.user(alice.ID); got != afterFirst {
		t.Errorf("second publish changed alice: %+v -> %+v", afterFirst, got)
	}
}

func TestPublishResult_CreatorHidden(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	p := mustCreateProject(t, svc, carol.ID, 1000)
	store.hide(carol.ID, p.ID)

	_, err := svc.PublishResult(context.Background(), PublishResultCmd{ProjectID: p.ID, ActorID: carol.ID, Result: models.OptionYes})
	if !errors.Is(err, settlement.ErrProjectUnavailable) {
		t.Fatalf("got %v, want ErrProjectUnavailable", err)
	}
	assertPoints(t, store, carol.ID, 5000, 1000)
}

func TestPublishResult_InvalidResult(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.PublishResult(context.Background(), PublishResultCmd{ProjectID: uuid.New(), Result: "maybe"})
	if !errors.Is(err, settlement.ErrInvalidResult) {
		t.Fatalf("got %v, want ErrInvalidResult", err)
	}
}

func TestPublishResults_Batch(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 10000)
	alice := store.addUser("alice", 1000)

	var cmds []PublishResultCmd
	for i := 0; i < 5; i++ {
		p := mustCreateProject(t, svc, carol.ID, 500)
		mustVote(t, svc, p.ID, alice.ID, models.OptionYes, 100)
		cmds = append(cmds, PublishResultCmd{ProjectID: p.ID, Result: models.OptionYes, Admin: true})
	}
	// Settle the third one ahead of the batch.
	if _, err := svc.PublishResult(context.Background(), cmds[2]); err != nil {
		t.Fatalf("pre-publish: %v", err)
	}
	cmds = append(cmds, PublishResultCmd{ProjectID: uuid.New(), Result: models.OptionYes, Admin: true})

	reports := svc.PublishResults(context.Background(), cmds)

	if len(reports) != len(cmds) {
		t.Fatalf("len(reports) = %d, want %d", len(reports), len(cmds))
	}
	for i, r := range reports {
		if r.ProjectID != cmds[i].ProjectID {
			t.Errorf("reports[%d] is for %s, want %s", i, r.ProjectID, cmds[i].ProjectID)
		}
	}
	for _, i := range []int{0, 1, 3, 4} {
		if reports[i].Err != nil || reports[i].Outcome == nil {
			t.Errorf("reports[%d] = %v, want success", i, reports[i].Err)
		}
	}
	if !errors.Is(reports[2].Err, settlement.ErrAlreadySettled) {
		t.Errorf("reports[2].Err = %v, want ErrAlreadySettled", reports[2].Err)
	}
	if !errors.Is(reports[5].Err, repository.ErrNotFound) {
		t.Errorf("reports[5].Err = %v, want ErrNotFound", reports[5].Err)
	}

	// Five wins of 100 each: stake back plus an equal reward.
	assertPoints(t, store, alice.ID, 1500, 0)
	assertPoints(t, store, carol.ID, 9500, 0)
}

// ---------------------------------------------------------------------------
// Pause, resume, hide
// ---------------------------------------------------------------------------

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	alice := store.addUser("alice", 1000)
	p := mustCreateProject(t, svc, carol.ID, 1000)

	if _, err := svc.Pause(ctx, p.ID, alice.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-creator pause = %v, want ErrForbidden", err)
	}
	paused, err := svc.Pause(ctx, p.ID, carol.ID)
	if err != nil || !paused.IsPaused {
		t.Fatalf("Pause = %+v, %v", paused, err)
	}
	if _, err := svc.CastVote(ctx, CastVoteCmd{ProjectID: p.ID, VoterID: alice.ID, Option: models.OptionNo, Points: 10}); !errors.Is(err, ErrVoteRejected) {
		t.Fatalf("vote while paused = %v, want ErrVoteRejected", err)
	}
	resumed, err := svc.Resume(ctx, p.ID, carol.ID)
	if err != nil || resumed.IsPaused {
		t.Fatalf("Resume = %+v, %v", resumed, err)
	}
	mustVote(t, svc, p.ID, alice.ID, models.OptionNo, 10)

	svc.PublishResult(ctx, PublishResultCmd{ProjectID: p.ID, ActorID: carol.ID, Result: models.OptionNo})
	if _, err := svc.Pause(ctx, p.ID, carol.ID); !errors.Is(err, settlement.ErrAlreadySettled) {
		t.Errorf("pause after publish = %v, want ErrAlreadySettled", err)
	}
}

func TestHideProject(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	alice := store.addUser("alice", 0)
	p := mustCreateProject(t, svc, carol.ID, 1000)

	for i := 0; i < 2; i++ {
		if err := svc.HideProject(ctx, p.ID, alice.ID); err != nil {
			t.Fatalf("HideProject #%d: %v", i+1, err)
		}
	}
	list, _ := svc.ListProjects(ctx, alice.ID)
	if len(list) != 0 {
		t.Errorf("alice sees %d projects, want 0", len(list))
	}
	list, _ = svc.ListProjects(ctx, carol.ID)
	if len(list) != 1 {
		t.Errorf("carol sees %d projects, want 1", len(list))
	}
}

func TestHideProject_CreatorMustSettleFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	carol := store.addUser("carol", 5000)
	alice := store.addUser("alice", 1000)
	p := mustCreateProject(t, svc, carol.ID, 1000)
	mustVote(t, svc, p.ID, alice.ID, models.OptionYes, 300)

	if err := svc.HideProject(ctx, p.ID, carol.ID); !errors.Is(err, ErrProjectOpen) {
		t.Fatalf("creator hide before publish = %v, want ErrProjectOpen", err)
	}
	if list, _ := svc.ListProjects(ctx, carol.ID); len(list) != 1 {
		t.Fatalf("carol sees %d projects, want 1", len(list))
	}

	if _, err := svc.PublishResult(ctx, PublishResultCmd{ProjectID: p.ID, ActorID: carol.ID, Result: models.OptionYes}); err != nil {
		t.Fatalf("PublishResult: %v", err)
	}
	assertPoints(t, store, alice.ID, 1300, 0)
	assertPoints(t, store, carol.ID, 4700, 0)

	if err := svc.HideProject(ctx, p.ID, carol.ID); err != nil {
		t.Fatalf("creator hide after publish: %v", err)
	}
	if list, _ := svc.ListProjects(ctx, carol.ID); len(list) != 0 {
		t.Errorf("carol sees %d projects after hiding, want 0", len(list))
	}
	got, err := svc.GetProject(ctx, p.ID)
	if err != nil || !got.HiddenByCreator {
		t.Errorf("GetProject = %+v, %v; want HiddenByCreator", got, err)
	}
}

// ---------------------------------------------------------------------------
// Users, grants, withdrawals
// ---------------------------------------------------------------------------

func TestCreateUser_WithInitialPoints(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	u, err := svc.CreateUser(context.Background(), "dora", 250)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.TotalPoints != 250 {
		t.Errorf("TotalPoints = %d, want 250", u.TotalPoints)
	}
	hist, _ := svc.History(context.Background(), u.ID, 0)
	if len(hist) != 1 || hist[0].Type != models.EntryAdminGrant {
		t.Errorf("history = %+v, want one admin_grant", hist)
	}

	if _, err := svc.CreateUser(context.Background(), "dora", 0); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("duplicate CreateUser = %v, want ErrConflict", err)
	}
}

func TestCreateUser_FailedWriteLeavesNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	store.failWrites = repository.ErrUnavailable
	if _, err := svc.CreateUser(context.Background(), "erin", 400); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("CreateUser = %v, want ErrUnavailable", err)
	}
	if n := len(store.users); n != 0 {
		t.Fatalf("%d users left behind, want 0", n)
	}

	u, err := svc.CreateUser(context.Background(), "erin", 400)
	if err != nil {
		t.Fatalf("retry CreateUser: %v", err)
	}
	assertPoints(t, store, u.ID, 400, 0)
	if got := store.entriesFor(u.ID); len(got) != 1 || got[0].BalanceAfter != 400 {
		t.Errorf("entries = %+v, want one admin_grant ending at 400", got)
	}
}

func TestWithdrawal_ApproveAndReject(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	alice := store.addUser("alice", 1000)

	approveMe, err := svc.RequestWithdrawal(ctx, alice.ID, 300)
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	rejectMe, err := svc.RequestWithdrawal(ctx, alice.ID, 200)
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	assertPoints(t, store, alice.ID, 1000, 500)

	if _, err := svc.RequestWithdrawal(ctx, alice.ID, 600); !errors.Is(err, ledger.ErrInsufficientPoints) {
		t.Errorf("over-withdrawal = %v, want ErrInsufficientPoints", err)
	}

	pending, _ := svc.PendingWithdrawals(ctx)
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}

	w, err := svc.ReviewWithdrawal(ctx, approveMe.ID, true)
	if err != nil || w.Status != models.WithdrawalApproved || w.ReviewedAt == nil {
		t.Fatalf("approve = %+v, %v", w, err)
	}
	assertPoints(t, store, alice.ID, 700, 200)

	w, err = svc.ReviewWithdrawal(ctx, rejectMe.ID, false)
	if err != nil || w.Status != models.WithdrawalRejected {
		t.Fatalf("reject = %+v, %v", w, err)
	}
	assertPoints(t, store, alice.ID, 700, 0)

	if _, err := svc.ReviewWithdrawal(ctx, approveMe.ID, false); !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("second review = %v, want ErrAlreadyReviewed", err)
	}
	assertPoints(t, store, alice.ID, 700, 0)
}

func TestGrantPoints(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	alice := store.addUser("alice", 10)

	u, err := svc.GrantPoints(context.Background(), alice.ID, 90, "")
	if err != nil {
		t.Fatalf("GrantPoints: %v", err)
	}
	if u.TotalPoints != 100 {
		t.Errorf("TotalPoints = %d, want 100", u.TotalPoints)
	}
	if _, err := svc.GrantPoints(context.Background(), alice.ID, 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("zero grant = %v, want ErrValidation", err)
	}
	if _, err := svc.GrantPoints(context.Background(), uuid.New(), 5, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown user = %v, want ErrNotFound", err)
	}
}
