package permit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWaitFor(t *testing.T) {
	t.Run("returns the visible element", func(t *testing.T) {
		page := newFakePage()
		el, err := WaitFor(context.Background(), page, shortTimeout, ApartmentFieldID)
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, []string{"wait:" + ApartmentFieldID}, page.recorded())
	})

	t.Run("timeout is ElementNotReady with id and timeout", func(t *testing.T) {
		page := newFakePage()
		page.missing[SubmitButtonID] = true

		start := time.Now()
		_, err := WaitFor(context.Background(), page, shortTimeout, SubmitButtonID)
		var notReady *ElementNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, SubmitButtonID, notReady.ID)
		assert.Equal(t, shortTimeout, notReady.Timeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("parent cancellation is not ElementNotReady", func(t *testing.T) {
		page := newFakePage()
		page.missing[SubmitButtonID] = true
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := WaitFor(ctx, page, time.Minute, SubmitButtonID)
		assert.ErrorIs(t, err, context.Canceled)
		var notReady *ElementNotReadyError
		assert.False(t, errors.As(err, &notReady))
	})
}

func TestAct(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		err := Act(context.Background(), shortTimeout, ApartmentFieldID, func(context.Context) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("a hung action is ElementNotReady at the deadline", func(t *testing.T) {
		start := time.Now()
		err := Act(context.Background(), shortTimeout, ApartmentFieldID, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		var notReady *ElementNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, ApartmentFieldID, notReady.ID)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("detached node")
		err := Act(context.Background(), shortTimeout, ApartmentFieldID, func(context.Context) error { return boom })
		assert.Same(t, boom, err)
	})

	t.Run("parent cancellation is not ElementNotReady", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Act(ctx, time.Minute, ApartmentFieldID, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
		var notReady *ElementNotReadyError
		assert.False(t, errors.As(err, &notReady))
	})
}

func TestFormDriverFill(t *testing.T) {
	t.Run("runs the wizard in order and submits once", func(t *testing.T) {
		page := newFakePage()
		d := NewFormDriver(testConfig(), zaptest.NewLogger(t))

		require.NoError(t, d.Fill(context.Background(), page))

		want := []string{
			"wait:" + PropertyDropdownID, "select:" + PropertyDropdownID + ":Sunset Apartments",
			"wait:" + ApartmentFieldID, "type:" + ApartmentFieldID + ":204",
			"wait:" + PropertyNextButtonID, "click:" + PropertyNextButtonID,
			"wait:" + PlateFieldID, "type:" + PlateFieldID + ":ABC1234",
			"wait:" + MakeFieldID, "type:" + MakeFieldID + ":Honda",
			"wait:" + ModelFieldID, "type:" + ModelFieldID + ":Civic",
			"wait:" + ColorFieldID, "type:" + ColorFieldID + ":Blue",
			"wait:" + VehicleNextButtonID, "click:" + VehicleNextButtonID,
			"wait:" + AuthNextButtonID, "click:" + AuthNextButtonID,
			"wait:" + ReviewPlateFieldID, "type:" + ReviewPlateFieldID + ":ABC1234",
			"wait:" + ConfirmCheckboxID, "click:" + ConfirmCheckboxID,
			"wait:" + SubmitButtonID, "click:" + SubmitButtonID,
		}
		assert.Equal(t, want, page.recorded())
	})

	t.Run("missing page 2 element stops before submit", func(t *testing.T) {
		page := newFakePage()
		page.missing[MakeFieldID] = true
		cfg := testConfig()
		d := NewFormDriver(cfg, zaptest.NewLogger(t))
		d.timeout = shortTimeout

		err := d.Fill(context.Background(), page)
		var notReady *ElementNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, MakeFieldID, notReady.ID)

		for _, a := range page.recorded() {
			assert.NotEqual(t, "click:"+SubmitButtonID, a, "submit must not happen after a failed step")
			assert.False(t, strings.Contains(a, ModelFieldID), "no step after the failure may run")
		}
	})

	t.Run("element that goes stale after becoming visible times out", func(t *testing.T) {
		page := newFakePage()
		page.stale[PropertyDropdownID] = true
		d := NewFormDriver(testConfig(), zaptest.NewLogger(t))
		d.timeout = shortTimeout

		// The outer context has no deadline; only the element timeout ends the step.
		start := time.Now()
		err := d.Fill(context.Background(), page)
		var notReady *ElementNotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, PropertyDropdownID, notReady.ID)
		assert.Equal(t, shortTimeout, notReady.Timeout)
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, []string{"wait:" + PropertyDropdownID, "select:" + PropertyDropdownID + ":Sunset Apartments"}, page.recorded())
	})

	t.Run("action failure aborts", func(t *testing.T) {
		page := newFakePage()
		page.actErr[ConfirmCheckboxID] = errors.New("detached node")
		d := NewFormDriver(testConfig(), zaptest.NewLogger(t))

		err := d.Fill(context.Background(), page)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ConfirmCheckboxID)
		assert.NotContains(t, page.recorded(), "click:"+SubmitButtonID)
	})
}

func TestParseExpiration(t *testing.T) {
	t.Run("portal format", func(t *testing.T) {
		got, err := ParseExpiration("2/22/2024 6:52:05 PM")
		require.NoError(t, err)
		want := time.Date(2024, time.February, 22, 18, 52, 5, 0, time.Local)
		assert.True(t, want.Equal(got), "got %s", got)
		assert.Equal(t, time.Local, got.Location())
	})

	t.Run("zero padded and surrounding space", func(t *testing.T) {
		got, err := ParseExpiration("  12/01/2024 12:00:00 AM\n")
		require.NoError(t, err)
		assert.True(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.Local).Equal(got))
	})

	for _, bad := range []string{"2024-02-22", "", "2/22/2024 18:52:05", "2/30/2024 6:52:05 PM"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseExpiration(bad)
			var parseErr *ExpirationParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, bad, parseErr.Text)
		})
	}
}

func TestReadExpiration(t *testing.T) {
	page := newFakePage()
	got, err := ReadExpiration(context.Background(), page, shortTimeout)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, time.February, 22, 18, 52, 5, 0, time.Local).Equal(got))

	page = newFakePage()
	page.texts[ExpirationLabelID] = "Expires soon"
	_, err = ReadExpiration(context.Background(), page, shortTimeout)
	var parseErr *ExpirationParseError
	assert.ErrorAs(t, err, &parseErr)

	page = newFakePage()
	page.missing[ExpirationLabelID] = true
	_, err = ReadExpiration(context.Background(), page, shortTimeout)
	var notReady *ElementNotReadyError
	assert.ErrorAs(t, err, &notReady)

	page = newFakePage()
	page.stale[ExpirationLabelID] = true
	_, err = ReadExpiration(context.Background(), page, shortTimeout)
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, ExpirationLabelID, notReady.ID)
}

func newTestArtifacts(t *testing.T, fs afero.Fs) *ArtifactManager {
	m := NewArtifactManager(fs, "/permits", shortTimeout, zaptest.NewLogger(t))
	m.now = func() time.Time { return time.Date(2024, time.February, 21, 18, 52, 9, 0, time.Local) }
	return m
}

func TestArtifactManager(t *testing.T) {
	t.Run("path is derived from the capture second", func(t *testing.T) {
		m := newTestArtifacts(t, afero.NewMemMapFs())
		assert.Equal(t, "/permits/rpm2park_parking_permit_2024-02-21_18-52-09.png", filepath.ToSlash(m.NewPath()))
	})

	t.Run("capture waits for the QR code first", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		m := newTestArtifacts(t, fs)
		page := newFakePage()

		a, err := m.Capture(context.Background(), page, m.NewPath(), false)
		require.NoError(t, err)
		assert.Equal(t, []string{"wait:" + QRCodeImageID, "screenshot"}, page.recorded())

		data, err := afero.ReadFile(fs, a.Path)
		require.NoError(t, err)
		assert.Equal(t, page.screenshot, data)
		assert.False(t, a.Persistent)
	})

	t.Run("no QR code, no file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		m := newTestArtifacts(t, fs)
		page := newFakePage()
		page.missing[QRCodeImageID] = true

		path := m.NewPath()
		_, err := m.Capture(context.Background(), page, path, true)
		var notReady *ElementNotReadyError
		require.ErrorAs(t, err, &notReady)
		exists, _ := afero.Exists(fs, path)
		assert.False(t, exists)
		assert.NotContains(t, page.recorded(), "screenshot")
	})

	t.Run("screenshot failure is an ArtifactError", func(t *testing.T) {
		m := newTestArtifacts(t, afero.NewMemMapFs())
		page := newFakePage()
		page.shotErr = errors.New("target closed")

		_, err := m.Capture(context.Background(), page, m.NewPath(), true)
		var artErr *ArtifactError
		require.ErrorAs(t, err, &artErr)
		assert.Equal(t, "capture", artErr.Op)
	})

	t.Run("ephemeral artifact is deleted", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		m := newTestArtifacts(t, fs)
		a, err := m.Capture(context.Background(), newFakePage(), m.NewPath(), false)
		require.NoError(t, err)

		require.NoError(t, m.Discard(a))
		exists, _ := afero.Exists(fs, a.Path)
		assert.False(t, exists)
	})

	t.Run("persistent artifact is never deleted", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		m := newTestArtifacts(t, fs)
		a, err := m.Capture(context.Background(), newFakePage(), m.NewPath(), true)
		require.NoError(t, err)

		require.NoError(t, m.Discard(a))
		exists, _ := afero.Exists(fs, a.Path)
		assert.True(t, exists)
	})

	t.Run("deleting a missing ephemeral artifact is an error", func(t *testing.T) {
		m := newTestArtifacts(t, afero.NewMemMapFs())
		err := m.Discard(&Artifact{Path: "/permits/gone.png"})
		var artErr *ArtifactError
		require.ErrorAs(t, err, &artErr)
		assert.ErrorIs(t, err, errArtifactMissing)
	})

	t.Run("nil artifact is a no-op", func(t *testing.T) {
		m := newTestArtifacts(t, afero.NewMemMapFs())
		assert.NoError(t, m.Discard(nil))
	})
}

func TestRenewer(t *testing.T) {
	now := time.Date(2024, time.February, 21, 18, 52, 5, 0, time.Local)
	newRenewer := func(s *fakeScheduler) *Renewer {
		r := NewRenewer(s, "/usr/local/bin/autopermit", []string{"--verbose"}, zaptest.NewLogger(t))
		r.now = func() time.Time { return now }
		return r
	}

	t.Run("registers one task at the expiration", func(t *testing.T) {
		s := newFakeScheduler()
		r := newRenewer(s)
		exp := now.Add(time.Hour)

		task, err := r.Renew(context.Background(), exp)
		require.NoError(t, err)
		require.Len(t, s.tasks, 1)
		got := s.tasks["AutomaticParkingPermitRenewal"]
		assert.Equal(t, task, got)
		assert.True(t, exp.Equal(got.At))
		assert.Equal(t, "/usr/local/bin/autopermit", got.Program)
		assert.Equal(t, []string{"--verbose"}, got.Args)
	})

	t.Run("re-arming replaces the task", func(t *testing.T) {
		s := newFakeScheduler()
		r := newRenewer(s)

		_, err := r.Renew(context.Background(), now.Add(time.Hour))
		require.NoError(t, err)
		later := now.Add(48 * time.Hour)
		_, err = r.Renew(context.Background(), later)
		require.NoError(t, err)

		require.Len(t, s.tasks, 1)
		assert.True(t, later.Equal(s.tasks["AutomaticParkingPermitRenewal"].At))
	})

	t.Run("past expiration registers nothing", func(t *testing.T) {
		s := newFakeScheduler()
		r := newRenewer(s)

		_, err := r.Renew(context.Background(), now.Add(-time.Minute))
		assert.ErrorIs(t, err, ErrExpiredPermit)
		assert.Zero(t, s.registers)
		assert.Empty(t, s.tasks)
	})

	t.Run("expiration equal to now is expired", func(t *testing.T) {
		s := newFakeScheduler()
		_, err := newRenewer(s).Renew(context.Background(), now)
		assert.ErrorIs(t, err, ErrExpiredPermit)
		assert.Zero(t, s.registers)
	})

	t.Run("scheduler failure propagates", func(t *testing.T) {
		s := newFakeScheduler()
		s.err = errors.New("access denied")
		_, err := newRenewer(s).Renew(context.Background(), now.Add(time.Hour))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}
