package proc

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turtlegfx/canvas/ipc"
)

var testLogger *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	testLogger = l
}

func TestMain(m *testing.M) {
	// When this test binary is spawned by Spawn, it carries the role marker and must
	// take over here as the server, exactly like a real program calling Start at the
	// top of main.
	Start()
	os.Exit(m.Run())
}

func TestRoleFromEnv(t *testing.T) {
	t.Setenv(RoleEnvVar, "true")
	assert.Equal(t, RoleServer, RoleFromEnv())

	t.Setenv(RoleEnvVar, "false")
	assert.Equal(t, RoleClient, RoleFromEnv())

	t.Setenv(RoleEnvVar, "")
	assert.Equal(t, RoleClient, RoleFromEnv())
}

func TestStartClientPathReturns(t *testing.T) {
	t.Setenv(RoleEnvVar, "")
	// Must return promptly and be repeatable on the client path.
	Start()
	Start()
}

func TestSpawnSetsRoleMarkerOnly(t *testing.T) {
	// The child env must contain the role marker and nothing inherited from us.
	t.Setenv("CANVAS_TEST_SENTINEL", "leaked")
	p, err := Spawn(
		WithLogger(testLogger),
		withCommand("sh", "-c", `test "$RUN_TURTLE_CANVAS" = true && test -z "$CANVAS_TEST_SENTINEL"`),
	)
	require.NoError(t, err)

	status, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.Code)
	assert.True(t, status.Success())
}

func TestSpawnBadExecutable(t *testing.T) {
	_, err := Spawn(
		WithLogger(testLogger),
		withCommand("/nonexistent/definitely-not-a-binary"),
	)
	require.Error(t, err)
}

func TestSendOneshotName(t *testing.T) {
	p, err := Spawn(
		WithLogger(testLogger),
		withCommand("sh", "-c", `read line && test "$line" = oneshot-name-123`),
	)
	require.NoError(t, err)

	require.NoError(t, p.SendOneshotName("oneshot-name-123"))

	err = p.SendOneshotName("again")
	require.ErrorIs(t, err, ErrNameAlreadySent)

	status, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.Code)
}

func TestWaitReturnsExitCode(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("sh", "-c", "exit 3"))
	require.NoError(t, err)

	status, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, status.Code)
	assert.False(t, status.Success())
}

func TestWaitHonorsContext(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("sleep", "10"))
	require.NoError(t, err)
	defer p.Abort()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = p.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAbortDoesNotBlock(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("sleep", "10"))
	require.NoError(t, err)

	start := time.Now()
	p.Abort()
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, status.Success())
}

func TestSessionEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := NewSession(ctx, WithLogger(testLogger))
	require.NoError(t, err)

	id := ipc.NewClientID()
	do := func(req ipc.Request) ipc.Response {
		t.Helper()
		require.NoError(t, sess.Send(ctx, id, req))
		gotID, resp, err := sess.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, id, gotID)
		return resp
	}

	resp := do(ipc.Request{Kind: ipc.RequestMoveForward, Distance: 25})
	assert.Equal(t, ipc.ResponseAck, resp.Kind)

	resp = do(ipc.Request{Kind: ipc.RequestPollState})
	require.Equal(t, ipc.ResponseState, resp.Kind)
	require.NotNil(t, resp.State)
	assert.Len(t, resp.State.Segments, 1)
	assert.InDelta(t, 25, resp.State.Position.X, 0.001)

	resp = do(ipc.Request{Kind: ipc.RequestQuit})
	assert.Equal(t, ipc.ResponseAck, resp.Kind)

	// The server exits cleanly after quit, so Close completes silently.
	require.NoError(t, sess.Close())
}

func TestSessionSendRecvFailAfterServerExit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := NewSession(ctx, WithLogger(testLogger))
	require.NoError(t, err)

	id := ipc.NewClientID()
	require.NoError(t, sess.Send(ctx, id, ipc.Request{Kind: ipc.RequestQuit}))
	_, _, err = sess.Recv(ctx)
	require.NoError(t, err)

	// Wait for the server process to be fully gone, then the connection is dead.
	_, err = sess.proc.Wait(ctx)
	require.NoError(t, err)

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	_, _, err = sess.Recv(recvCtx)
	require.Error(t, err)

	sess.Abort()
}

func TestSessionClosePropagatesExitCode(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("sh", "-c", "exit 3"))
	require.NoError(t, err)

	exitCode := -1
	sess := &Session{
		log:    testLogger.Sugar(),
		proc:   p,
		exitFn: func(code int) { exitCode = code },
	}
	require.NoError(t, sess.Close())
	assert.Equal(t, 3, exitCode)

	// The teardown is consumed; a second Close is a no-op.
	exitCode = -1
	require.NoError(t, sess.Close())
	assert.Equal(t, -1, exitCode)
}

func TestSessionCloseSilentOnSuccess(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("true"))
	require.NoError(t, err)

	exited := false
	sess := &Session{
		log:    testLogger.Sugar(),
		proc:   p,
		exitFn: func(code int) { exited = true },
	}
	require.NoError(t, sess.Close())
	assert.False(t, exited)
}

func TestSessionAbortFast(t *testing.T) {
	p, err := Spawn(WithLogger(testLogger), withCommand("sleep", "10"))
	require.NoError(t, err)

	sess := &Session{
		log:    testLogger.Sugar(),
		proc:   p,
		exitFn: func(int) {},
	}

	start := time.Now()
	sess.Abort()
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, status.Success())
}

func TestRunAbortsOnPanic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.PanicsWithValue(t, "boom", func() {
		Run(ctx, func(sess *Session) error {
			panic("boom")
		}, WithLogger(testLogger))
	})
}

func TestRunAbortsOnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	boom := errors.New("boom")
	err := Run(ctx, func(sess *Session) error {
		return boom
	}, WithLogger(testLogger))
	require.ErrorIs(t, err, boom)
}
