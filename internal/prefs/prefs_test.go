// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists per-chart view preferences keyed by chart identity.
package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := Open(path)
	require.NoError(t, err, "Open should succeed on a fresh path")
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_GetMissingIdentity(t *testing.T) {
	s, _ := openTestStore(t)

	p, ok := s.Get("chart_0000000000000000")
	require.False(t, ok, "Get should miss for an unknown identity")
	require.True(t, p.IsZero(), "missing identity should return zero prefs")
}

func TestStore_PutThenGet(t *testing.T) {
	s, _ := openTestStore(t)
	identity := chartdata.Identity("Revenue by Segment", chartdata.TypePie)

	want := Prefs{
		ViewMode:       chartdata.ViewTable,
		ChartType:      chartdata.TypeBar,
		CategoryColumn: "Country",
		ValueColumn:    "2010",
	}
	require.NoError(t, s.Put(identity, want))

	got, ok := s.Get(identity)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestStore_PutReplacesPrevious(t *testing.T) {
	s, _ := openTestStore(t)
	identity := chartdata.Identity("Sales", chartdata.TypeBar)

	require.NoError(t, s.Put(identity, Prefs{ViewMode: chartdata.ViewChart}))
	require.NoError(t, s.Put(identity, Prefs{ViewMode: chartdata.ViewTable}))

	got, ok := s.Get(identity)
	require.True(t, ok)
	require.Equal(t, chartdata.ViewTable, got.ViewMode)
	require.Equal(t, 1, s.Count(), "replacing a record must not add a row")
}

// Same key must restore the same value across a close/reopen cycle; this is
// the whole point of the store.
func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	identity := chartdata.Identity("AAPL Stock Price Trend", chartdata.TypeLine)

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(identity, Prefs{
		ViewMode:  chartdata.ViewChart,
		ChartType: chartdata.TypeArea,
	}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok := s2.Get(identity)
	require.True(t, ok, "records must survive reopen")
	require.Equal(t, chartdata.TypeArea, got.ChartType)
}

func TestStore_Update(t *testing.T) {
	s, _ := openTestStore(t)
	identity := chartdata.Identity("Ratings", chartdata.TypeBar)

	// Update on a missing identity starts from zero prefs.
	require.NoError(t, s.Update(identity, func(p Prefs) Prefs {
		require.True(t, p.IsZero())
		p.ViewMode = chartdata.ViewTable
		return p
	}))

	// A later update sees the earlier write.
	require.NoError(t, s.Update(identity, func(p Prefs) Prefs {
		require.Equal(t, chartdata.ViewTable, p.ViewMode)
		p.ValueColumn = "value"
		return p
	}))

	got, _ := s.Get(identity)
	require.Equal(t, chartdata.ViewTable, got.ViewMode)
	require.Equal(t, "value", got.ValueColumn)
}

func TestStore_Delete(t *testing.T) {
	s, _ := openTestStore(t)
	identity := chartdata.Identity("Temp", chartdata.TypePie)

	require.NoError(t, s.Put(identity, Prefs{ViewMode: chartdata.ViewChart}))
	require.NoError(t, s.Delete(identity))

	_, ok := s.Get(identity)
	require.False(t, ok, "deleted identity should miss")
}

func TestStore_CorruptRowsAreSkippedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s1, err := Open(path)
	require.NoError(t, err)
	good := chartdata.Identity("Good", chartdata.TypeBar)
	require.NoError(t, s1.Put(good, Prefs{ViewMode: chartdata.ViewChart}))

	// Simulate a record written by some other build with values this one
	// does not understand.
	_, err = s1.db.Exec(`
		INSERT INTO chart_prefs (identity, view_mode, chart_type, category_column, value_column, updated_at)
		VALUES ('chart_bad', 'hologram', '', '', '', 0)`)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err, "a bad row must not prevent opening")
	defer s2.Close()

	_, ok := s2.Get(good)
	require.True(t, ok, "good rows should still load")
	_, ok = s2.Get("chart_bad")
	require.False(t, ok, "unknown view modes should be skipped")
}

func TestStore_WriteAfterCloseFails(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close should be idempotent")

	err := s.Put("chart_x", Prefs{ViewMode: chartdata.ViewChart})
	require.ErrorIs(t, err, ErrClosed)
}
