package gomoku

import (
	"context"
	"io"
	"sync"
	"testing"

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
	return NewService(store.NewMemoryStore[Room](log), log)
}

// startedRoom creates a room, seats two players and runs the ready
// handshake so the round is in progress with X to move.
func startedRoom(t *testing.T, svc *Service) *Room {
	t.Helper()
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)

	seat, _, err := svc.Join(ctx, r.ID, "alice", "Alice", "")
	require.NoError(t, err)
	require.Equal(t, SeatX, seat)

	seat, _, err = svc.Join(ctx, r.ID, "bob", "Bob", "")
	require.NoError(t, err)
	require.Equal(t, SeatO, seat)

	_, err = svc.SetReady(ctx, r.ID, "alice", true)
	require.NoError(t, err)
	snap, err := svc.SetReady(ctx, r.ID, "bob", true)
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, snap.Status)
	return snap
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "")
	require.NoError(t, err)
	assert.Len(t, r.ID, room.CodeLength)
	assert.Equal(t, StatusLobby, r.Status)
	assert.Equal(t, SeatX, r.Turn)
	assert.Empty(t, r.Players)
	assert.NotNil(t, r.FinishAck)

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.Get(ctx, "NOPE!")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestJoinFillsXThenO(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)

	seat, snap, err := svc.Join(ctx, r.ID, "alice", "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, SeatX, seat)
	assert.Equal(t, StatusLobby, snap.Status)

	seat, snap, err = svc.Join(ctx, r.ID, "bob", "Bob", "")
	require.NoError(t, err)
	assert.Equal(t, SeatO, seat)
	// Both seated is not enough; the round waits on the ready handshake.
	assert.Equal(t, StatusLobby, snap.Status)

	_, _, err = svc.Join(ctx, r.ID, "carol", "Carol", "")
	assert.ErrorIs(t, err, room.ErrFull)
}

func TestJoinRejoinKeepsSeat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)

	_, _, err = svc.Join(ctx, r.ID, "alice", "Alice", "")
	require.NoError(t, err)

	seat, snap, err := svc.Join(ctx, r.ID, "alice", "Alice 2", "")
	require.NoError(t, err)
	assert.Equal(t, SeatX, seat)
	assert.Equal(t, "Alice 2", snap.Players[SeatX].Name)
	assert.Nil(t, snap.Players[SeatO], "rejoin must not consume the other seat")
}

func TestJoinSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, r.SecretHash)
	assert.NotEqual(t, "hunter2", r.SecretHash)

	_, _, err = svc.Join(ctx, r.ID, "eve", "Eve", "wrong")
	assert.ErrorIs(t, err, room.ErrBadSecret)

	seat, _, err := svc.Join(ctx, r.ID, "alice", "Alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, SeatX, seat)

	// Rejoin never re-checks the secret.
	_, _, err = svc.Join(ctx, r.ID, "alice", "Alice", "")
	assert.NoError(t, err)
}

func TestRedactedStripsSecretHash(t *testing.T) {
	svc := newTestService(t)
	r, err := svc.Create(context.Background(), "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, r.SecretHash)

	red := r.Redacted()
	assert.Empty(t, red.SecretHash)
	assert.Equal(t, r.ID, red.ID)
	assert.NotEmpty(t, r.SecretHash, "redaction must not touch the original")
}

func TestReadyHandshakeStartsRound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, _, err = svc.Join(ctx, r.ID, "alice", "Alice", "")
	require.NoError(t, err)
	_, _, err = svc.Join(ctx, r.ID, "bob", "Bob", "")
	require.NoError(t, err)

	snap, err := svc.SetReady(ctx, r.ID, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, snap.Status)
	assert.True(t, snap.Players[SeatX].Ready)

	// Toggling back off is allowed while still in the lobby.
	snap, err = svc.SetReady(ctx, r.ID, "alice", false)
	require.NoError(t, err)
	assert.False(t, snap.Players[SeatX].Ready)

	_, err = svc.SetReady(ctx, r.ID, "bob", true)
	require.NoError(t, err)
	snap, err = svc.SetReady(ctx, r.ID, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Equal(t, SeatX, snap.Turn)
	// Ready flags are consumed by the round start.
	assert.False(t, snap.Players[SeatX].Ready)
	assert.False(t, snap.Players[SeatO].Ready)
}

func TestSetReadyIgnoredOutsideLobby(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	snap, err := svc.SetReady(ctx, r.ID, "alice", true)
	require.NoError(t, err)
	assert.Nil(t, snap, "ready during play is a no-op")

	snap, err = svc.SetReady(ctx, r.ID, "mallory", true)
	require.NoError(t, err)
	assert.Nil(t, snap, "spectator ready is a no-op")
}

func TestPlaceAlternatesTurns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	snap, err := svc.Place(ctx, r.ID, "alice", 7, 7)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, MarkX, snap.Board[7][7])
	assert.Equal(t, SeatO, snap.Turn)
	require.Len(t, snap.Moves, 1)
	assert.Equal(t, 1, snap.Moves[0].Seq)
	assert.Equal(t, SeatX, snap.Moves[0].By)
	require.NotNil(t, snap.LastMove)
	assert.Equal(t, 7, snap.LastMove.Row)

	snap, err = svc.Place(ctx, r.ID, "bob", 8, 8)
	require.NoError(t, err)
	assert.Equal(t, MarkO, snap.Board[8][8])
	assert.Equal(t, SeatX, snap.Turn)
	assert.Equal(t, 2, snap.Moves[1].Seq)
}

func TestPlaceRuleViolationsAreSilent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	_, err := svc.Place(ctx, r.ID, "alice", 7, 7)
	require.NoError(t, err)

	cases := []struct {
		name string
		uid  string
		row  int
		col  int
	}{
		{"out of turn", "alice", 0, 0},
		{"spectator", "mallory", 0, 0},
		{"occupied cell", "bob", 7, 7},
		{"row out of range", "bob", Size, 0},
		{"col negative", "bob", 0, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := svc.Place(ctx, r.ID, tc.uid, tc.row, tc.col)
			require.NoError(t, err)
			assert.Nil(t, snap)
		})
	}

	// The room did not move either.
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Moves, 1)
	assert.Equal(t, SeatO, got.Turn)
}

func TestPlaceMissingRoom(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Place(context.Background(), "GHOST", "alice", 0, 0)
	assert.ErrorIs(t, err, room.ErrNotFound)
}

// playToWin drives X to a horizontal five on row 0 while O answers on row 15.
func playToWin(t *testing.T, svc *Service, code string) *Room {
	t.Helper()
	ctx := context.Background()
	var snap *Room
	var err error
	for i := 0; i < WinLength; i++ {
		snap, err = svc.Place(ctx, code, "alice", 0, i)
		require.NoError(t, err)
		require.NotNil(t, snap)
		if i < WinLength-1 {
			_, err = svc.Place(ctx, code, "bob", Size-1, i)
			require.NoError(t, err)
		}
	}
	return snap
}

func TestWinEndsRound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var finished *Room
	r := startedRoom(t, svc)
	svc.OnFinish = func(r *Room) { finished = r }

	snap := playToWin(t, svc, r.ID)
	assert.Equal(t, StatusRoundEnd, snap.Status)
	assert.Equal(t, SeatX, snap.Winner)
	assert.Equal(t, 1, snap.Players[SeatX].Score)
	assert.Equal(t, 0, snap.Players[SeatO].Score)
	assert.NotZero(t, snap.FinishedAt)
	assert.False(t, snap.FinishAck[SeatX])
	assert.False(t, snap.FinishAck[SeatO])
	// The winning board stays visible until the next round starts.
	assert.Equal(t, MarkX, snap.Board[0][WinLength-1])
	require.NotNil(t, finished)
	assert.Equal(t, SeatX, finished.Winner)

	// No further placements once the round is over.
	late, err := svc.Place(ctx, r.ID, "bob", 10, 10)
	require.NoError(t, err)
	assert.Nil(t, late)
}

func TestFullBoardDrawsRound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	var finished *Room
	svc.OnFinish = func(r *Room) { finished = r }

	// Fill every cell but one with the opposing mark; the final placement
	// cannot complete a run, so it fills the board instead of winning.
	_, err := svc.rooms.Transact(ctx, r.ID, func(cur *Room) (*Room, error) {
		for row := 0; row < Size; row++ {
			for col := 0; col < Size; col++ {
				cur.Board[row][col] = MarkO
			}
		}
		cur.Board[0][0] = MarkEmpty
		return cur, nil
	})
	require.NoError(t, err)

	snap, err := svc.Place(ctx, r.ID, "alice", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, StatusRoundEnd, snap.Status)
	assert.Empty(t, snap.Winner, "a full board without a run is drawn")
	assert.NotZero(t, snap.FinishedAt)
	assert.False(t, snap.FinishAck[SeatX])
	assert.False(t, snap.FinishAck[SeatO])
	assert.Equal(t, 0, snap.Players[SeatX].Score)
	assert.Equal(t, 0, snap.Players[SeatO].Score)
	require.NotNil(t, finished)
	assert.Empty(t, finished.Winner)

	// The drawn round restarts like any other.
	next, err := svc.StartRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, next.Status)
	assert.Equal(t, NewBoard(), next.Board)
}

func TestStartRoundRematch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)
	playToWin(t, svc, r.ID)

	require.NoError(t, svc.AcknowledgeFinish(ctx, r.ID, SeatO))
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.FinishAck[SeatO])

	snap, err := svc.StartRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Equal(t, SeatX, snap.Turn)
	assert.Empty(t, snap.Moves)
	assert.Equal(t, NewBoard(), snap.Board)
	assert.Empty(t, snap.Winner)
	assert.Zero(t, snap.FinishedAt)
	assert.False(t, snap.FinishAck[SeatO])
	// Scores carry across rounds.
	assert.Equal(t, 1, snap.Players[SeatX].Score)

	// A second StartRound against the fresh round is a no-op.
	again, err := svc.StartRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStartRoundOnlyAfterRoundEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	snap, err := svc.StartRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLeaveDiscardsRound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)
	_, err := svc.Place(ctx, r.ID, "alice", 3, 3)
	require.NoError(t, err)

	snap, err := svc.Leave(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, snap.Status)
	assert.Nil(t, snap.Players[SeatO])
	assert.Empty(t, snap.Moves)
	assert.Equal(t, NewBoard(), snap.Board)
	// The stayer keeps their seat and score record.
	require.NotNil(t, snap.Players[SeatX])
	assert.Equal(t, "alice", snap.Players[SeatX].UID)

	// A newcomer fills the vacated seat.
	seat, _, err := svc.Join(ctx, r.ID, "carol", "Carol", "")
	require.NoError(t, err)
	assert.Equal(t, SeatO, seat)
}

func TestLeaveSpectatorNoOp(t *testing.T) {
	svc := newTestService(t)
	r := startedRoom(t, svc)
	snap, err := svc.Leave(context.Background(), r.ID, "mallory")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestConcurrentPlaceAppliesOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r := startedRoom(t, svc)

	// Both goroutines race X's first move at the same cell; the turn check
	// guarantees exactly one placement lands.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, r.ID, "alice", 5, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Moves, 1)
	assert.Equal(t, MarkX, got.Board[5][5])
	assert.Equal(t, SeatO, got.Turn)
}

func TestConcurrentReadyStartsRoundOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, _, err = svc.Join(ctx, r.ID, "alice", "Alice", "")
	require.NoError(t, err)
	_, _, err = svc.Join(ctx, r.ID, "bob", "Bob", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, uid := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := svc.SetReady(ctx, r.ID, uid, true)
			assert.NoError(t, err)
		}(uid)
	}
	wg.Wait()

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, got.Status)
	assert.Equal(t, SeatX, got.Turn)
	assert.Empty(t, got.Moves)
}
