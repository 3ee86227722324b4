package service

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"steam-rewards/internal/model"
)

func TestStreakRewardSchedule(t *testing.T) {
	r := testRewardsConfig()

	// The published schedule for the first two weeks: 10, 12, 14, 16, 18,
	// 20, then 25 from day 7 on, with +5 per completed week capped later.
	cases := []struct {
		day  int
		want int64
	}{
		{1, 10},
		{2, 12},
		{3, 14},
		{4, 16},
		{5, 18},
		{6, 20},
		{7, 30},  // 25 + one weekly bonus
		{8, 30},
		{13, 30},
		{14, 35}, // 25 + two weekly bonuses
		{70, 75}, // bonus capped at 50
		{365, 75},
	}
	for _, c := range cases {
		if got := streakReward(c.day, r); got != c.want {
			t.Errorf("streakReward(%d) = %d, want %d", c.day, got, c.want)
		}
	}
}

func TestStreakRewardProperties(t *testing.T) {
	r := testRewardsConfig()

	rapid.Check(t, func(t *rapid.T) {
		day := rapid.IntRange(1, 3650).Draw(t, "day")

		got := streakReward(day, r)

		// Never below the day-one reward.
		if got < r.CheckInBase {
			t.Fatalf("streakReward(%d) = %d, below base %d", day, got, r.CheckInBase)
		}

		// The weekly bonus is bounded, so the reward is too.
		if max := r.CheckInPlateau + r.WeeklyBonusCap; got > max {
			t.Fatalf("streakReward(%d) = %d, above cap %d", day, got, max)
		}

		// Longer streaks never pay less.
		if streakReward(day+1, r) < got {
			t.Fatalf("reward decreased from day %d to day %d", day, day+1)
		}
	})
}

func TestNextStreakDayTransitions(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	checkInOn := func(d time.Time, streakDay int) *model.CheckIn {
		return &model.CheckIn{UserID: 1, CheckInDate: d, StreakDay: streakDay}
	}

	// First ever check-in.
	if got := nextStreakDay(nil, date); got != 1 {
		t.Errorf("nextStreakDay(nil) = %d, want 1", got)
	}

	// Yesterday continues the streak.
	if got := nextStreakDay(checkInOn(date.AddDate(0, 0, -1), 4), date); got != 5 {
		t.Errorf("consecutive day = %d, want 5", got)
	}

	// A two-day gap resets.
	if got := nextStreakDay(checkInOn(date.AddDate(0, 0, -2), 4), date); got != 1 {
		t.Errorf("gap day = %d, want 1", got)
	}

	// A long absence resets too.
	if got := nextStreakDay(checkInOn(date.AddDate(0, 0, -30), 12), date); got != 1 {
		t.Errorf("long gap = %d, want 1", got)
	}
}

func TestNextStreakDayProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		gap := rapid.IntRange(1, 60).Draw(t, "gap")
		prevStreak := rapid.IntRange(1, 500).Draw(t, "prevStreak")

		last := &model.CheckIn{
			UserID:      1,
			CheckInDate: base,
			StreakDay:   prevStreak,
		}
		got := nextStreakDay(last, base.AddDate(0, 0, gap))

		if gap == 1 {
			if got != prevStreak+1 {
				t.Fatalf("gap 1: got %d, want %d", got, prevStreak+1)
			}
		} else if got != 1 {
			t.Fatalf("gap %d: got %d, want 1", gap, got)
		}
	})
}
