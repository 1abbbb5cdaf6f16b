package chess

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinhpn/boardroom/internal/room"
	"github.com/vinhpn/boardroom/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(store.NewMemoryStore[Room](log), NewEngine(), log)
}

// activeRoom creates a room and seats two players, which starts the game.
func activeRoom(t *testing.T, svc *Service) *Room {
	t.Helper()
	ctx := context.Background()
	r, err := svc.Create(ctx, "Test room")
	require.NoError(t, err)
	_, _, err = svc.Join(ctx, r.ID, "alice", "Alice")
	require.NoError(t, err)
	_, snap, err := svc.Join(ctx, r.ID, "bob", "Bob")
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, snap.Status)
	return snap
}

// mate plays the fastest checkmate; black delivers it.
func mate(t *testing.T, svc *Service, code string) *Room {
	t.Helper()
	ctx := context.Background()
	plies := []struct {
		uid      string
		from, to string
	}{
		{"alice", "f2", "f3"},
		{"bob", "e7", "e5"},
		{"alice", "g2", "g4"},
		{"bob", "d8", "h4"},
	}
	var snap *Room
	var err error
	for _, p := range plies {
		snap, err = svc.Move(ctx, code, p.uid, p.from, p.to, "")
		require.NoError(t, err)
		require.NotNil(t, snap, "move %s-%s should apply", p.from, p.to)
	}
	return snap
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Chess room", r.Name)
	assert.Equal(t, StatusLobby, r.Status)
	assert.Equal(t, InitialFEN, r.FEN)
	assert.Equal(t, SeatWhite, r.Turn)

	named, err := svc.Create(ctx, "Friday blitz")
	require.NoError(t, err)
	assert.Equal(t, "Friday blitz", named.Name)

	_, err = svc.Get(ctx, "GHOST")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestJoinStartsOnSecondSeat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)

	seat, snap, err := svc.Join(ctx, r.ID, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, SeatWhite, seat)
	assert.Equal(t, StatusLobby, snap.Status)

	seat, snap, err = svc.Join(ctx, r.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, SeatBlack, seat)
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Equal(t, InitialFEN, snap.FEN)
	assert.Equal(t, SeatWhite, snap.Turn)
	assert.Equal(t, "Guest", snap.Players[SeatBlack].Name)

	_, _, err = svc.Join(ctx, r.ID, "carol", "Carol")
	assert.ErrorIs(t, err, room.ErrFull)
}

func TestJoinRejoinKeepsSeatAndGame(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)
	_, err := svc.Move(ctx, r.ID, "alice", "e2", "e4", "")
	require.NoError(t, err)

	seat, snap, err := svc.Join(ctx, r.ID, "bob", "Bobby")
	require.NoError(t, err)
	assert.Equal(t, SeatBlack, seat)
	assert.Equal(t, "Bobby", snap.Players[SeatBlack].Name)
	// The game in progress is untouched by a reconnect.
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Len(t, snap.Moves, 1)
}

func TestMoveUpdatesRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)

	snap, err := svc.Move(ctx, r.ID, "alice", "e2", "e4", "")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotEqual(t, InitialFEN, snap.FEN)
	assert.Equal(t, SeatBlack, snap.Turn)
	require.Len(t, snap.Moves, 1)
	rec := snap.Moves[0]
	assert.Equal(t, 1, rec.Seq)
	assert.Equal(t, "e2-e4", rec.San)
	assert.Equal(t, SeatWhite, rec.By)
	assert.Empty(t, rec.Captured)
}

func TestMoveRecordsCapture(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)

	_, err := svc.Move(ctx, r.ID, "alice", "e2", "e4", "")
	require.NoError(t, err)
	_, err = svc.Move(ctx, r.ID, "bob", "d7", "d5", "")
	require.NoError(t, err)
	snap, err := svc.Move(ctx, r.ID, "alice", "e4", "d5", "")
	require.NoError(t, err)
	require.Len(t, snap.Moves, 3)
	assert.Equal(t, "p", snap.Moves[2].Captured)
}

func TestMoveRuleViolationsAreSilent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)

	cases := []struct {
		name     string
		uid      string
		from, to string
	}{
		{"out of turn", "bob", "e7", "e5"},
		{"spectator", "mallory", "e2", "e4"},
		{"illegal destination", "alice", "e2", "e5"},
		{"empty source square", "alice", "e4", "e5"},
		{"opponent piece", "alice", "e7", "e5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := svc.Move(ctx, r.ID, tc.uid, tc.from, tc.to, "")
			require.NoError(t, err)
			assert.Nil(t, snap)
		})
	}

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, InitialFEN, got.FEN)
	assert.Empty(t, got.Moves)
}

func TestMoveMissingRoom(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Move(context.Background(), "GHOST", "alice", "e2", "e4", "")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestCheckmateEndsGame(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)

	var finished *Room
	svc.OnFinish = func(r *Room) { finished = r }

	snap := mate(t, svc, r.ID)
	assert.Equal(t, StatusCheckmate, snap.Status)
	assert.Equal(t, SeatBlack, snap.Winner)
	require.NotNil(t, snap.Result)
	assert.Equal(t, StatusCheckmate, snap.Result.Type)
	assert.Equal(t, SeatBlack, snap.Result.By)
	assert.NotZero(t, snap.FinishedAt)
	assert.False(t, snap.FinishAck[SeatWhite])
	assert.False(t, snap.FinishAck[SeatBlack])
	require.NotNil(t, finished)
	assert.Equal(t, SeatBlack, finished.Winner)

	// No moves once the game is over.
	late, err := svc.Move(ctx, r.ID, "alice", "e2", "e4", "")
	require.NoError(t, err)
	assert.Nil(t, late)
}

func TestResign(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)

	var finished *Room
	svc.OnFinish = func(r *Room) { finished = r }

	snap, err := svc.Resign(ctx, r.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusResign, snap.Status)
	assert.Equal(t, SeatBlack, snap.Winner)
	require.NotNil(t, snap.Result)
	assert.Equal(t, SeatBlack, snap.Result.By)
	require.NotNil(t, finished)

	// Resigning a finished game changes nothing.
	again, err := svc.Resign(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestResignSpectatorNoOp(t *testing.T) {
	svc := newTestService(t)
	r := activeRoom(t, svc)
	snap, err := svc.Resign(context.Background(), r.ID, "mallory")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestResetRequiresBothAcks(t *testing.T) {
	svc := newTestService(t)
	svc.ResetCooldown = 0
	ctx := context.Background()
	r := activeRoom(t, svc)
	mate(t, svc, r.ID)

	snap, err := svc.Reset(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, snap, "reset before any ack is a no-op")

	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatWhite))
	snap, err = svc.Reset(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, snap, "reset on one ack is a no-op")

	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatBlack))
	snap, err = svc.Reset(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Equal(t, InitialFEN, snap.FEN)
	assert.Equal(t, SeatWhite, snap.Turn)
	assert.Empty(t, snap.Moves)
	assert.Empty(t, snap.Winner)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.FinishAck[SeatWhite])
	assert.False(t, snap.FinishAck[SeatBlack])
}

func TestResetCooldown(t *testing.T) {
	svc := newTestService(t)
	svc.ResetCooldown = time.Hour
	ctx := context.Background()
	r := activeRoom(t, svc)
	mate(t, svc, r.ID)
	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatWhite))
	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatBlack))

	snap, err := svc.Reset(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, snap, "reset inside the cooldown is a no-op")
}

func TestResetIgnoredWhilePlaying(t *testing.T) {
	svc := newTestService(t)
	svc.ResetCooldown = 0
	r := activeRoom(t, svc)

	snap, err := svc.Reset(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	mv, ok := matchMove([]OracleMove{
		{From: "a7", To: "a8", Promotion: "n"},
		{From: "a7", To: "a8", Promotion: "q"},
		{From: "a7", To: "a8", Promotion: "r"},
		{From: "a7", To: "a8", Promotion: "b"},
	}, "a8", "")
	require.True(t, ok)
	assert.Equal(t, "q", mv.Promotion)

	mv, ok = matchMove([]OracleMove{
		{From: "a7", To: "a8", Promotion: "n"},
		{From: "a7", To: "a8", Promotion: "q"},
	}, "a8", "n")
	require.True(t, ok)
	assert.Equal(t, "n", mv.Promotion)

	_, ok = matchMove([]OracleMove{
		{From: "a7", To: "a8", Promotion: "q"},
	}, "b8", "")
	assert.False(t, ok)
}

func TestLeaveResetsToLobby(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := activeRoom(t, svc)
	_, err := svc.Move(ctx, r.ID, "alice", "e2", "e4", "")
	require.NoError(t, err)

	snap, err := svc.Leave(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, snap.Status)
	assert.Nil(t, snap.Players[SeatBlack])
	assert.Equal(t, InitialFEN, snap.FEN)
	assert.Empty(t, snap.Moves)

	// The next arrival takes the vacated seat and restarts the game.
	seat, snap, err := svc.Join(ctx, r.ID, "carol", "Carol")
	require.NoError(t, err)
	assert.Equal(t, SeatBlack, seat)
	assert.Equal(t, StatusPlaying, snap.Status)
}

func TestAcknowledgeFinishUnknownSeatHolder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)

	// No one holds black yet; the ack is dropped.
	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatBlack))
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.FinishAck[SeatBlack])

	assert.ErrorIs(t, svc.AcknowledgeFinish(ctx, "GHOST", SeatWhite), room.ErrNotFound)
}
