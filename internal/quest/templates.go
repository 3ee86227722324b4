// Package quest provides the fixed quest template pool from which daily
// quest sets are drawn.
package quest

import (
	"fmt"
	"math/rand"
	"time"

	"steam-rewards/internal/model"
)

// Template holds the configuration for one quest template.
type Template struct {
	Type        string // quest type, drives progress computation
	Title       string
	Description string
	Requirement int   // numeric threshold
	Reward      int64 // base points before boost
	Icon        string
}

// Templates contains all quest templates. Daily sets draw five of these.
// Easily extensible - just add new templates to this slice.
var Templates = []Template{
	{
		Type:        model.QuestTypePlaytime,
		Title:       "Warm-Up Session",
		Description: "Play any game for 30 minutes today",
		Requirement: 30,
		Reward:      50,
		Icon:        "⏱️",
	},
	{
		Type:        model.QuestTypePlaytime,
		Title:       "Deep Dive",
		Description: "Play for 2 hours today",
		Requirement: 120,
		Reward:      150,
		Icon:        "🎮",
	},
	{
		Type:        model.QuestTypePlaytime,
		Title:       "Marathon Gamer",
		Description: "Play for 4 hours today",
		Requirement: 240,
		Reward:      300,
		Icon:        "🔥",
	},
	{
		Type:        model.QuestTypeGameCount,
		Title:       "Variety Pack",
		Description: "Play 2 different games today",
		Requirement: 2,
		Reward:      75,
		Icon:        "🎲",
	},
	{
		Type:        model.QuestTypeGameCount,
		Title:       "Library Explorer",
		Description: "Play 3 different games today",
		Requirement: 3,
		Reward:      125,
		Icon:        "📚",
	},
	{
		Type:        model.QuestTypeAchievement,
		Title:       "Trophy Hunter",
		Description: "Unlock 1 achievement today",
		Requirement: 1,
		Reward:      100,
		Icon:        "🏆",
	},
	{
		Type:        model.QuestTypeAchievement,
		Title:       "Completionist",
		Description: "Unlock 3 achievements today",
		Requirement: 3,
		Reward:      250,
		Icon:        "⭐",
	},
	{
		Type:        model.QuestTypeSocial,
		Title:       "Community Voice",
		Description: "Share your daily progress with the community",
		Requirement: 1,
		Reward:      50,
		Icon:        "💬",
	},
	{
		Type:        model.QuestTypeConsistency,
		Title:       "Habit Builder",
		Description: "Keep a 3-day check-in streak",
		Requirement: 3,
		Reward:      100,
		Icon:        "📅",
	},
	{
		Type:        model.QuestTypeConsistency,
		Title:       "Iron Will",
		Description: "Keep a 7-day check-in streak",
		Requirement: 7,
		Reward:      200,
		Icon:        "💪",
	},
}

// QuestID builds the deterministic id for a quest at a position in a
// day's set: quest_<date>_<index>.
func QuestID(date time.Time, index int) string {
	return fmt.Sprintf("quest_%s_%d", date.UTC().Format("2006-01-02"), index)
}

// DrawSet selects count templates from the pool using the supplied random
// source and materializes them as quest definitions for the date. The same
// seed always yields the same set; ids are date+index scoped so no two
// quests in one day collide by construction.
func DrawSet(date time.Time, count int, rng *rand.Rand) []model.QuestDefinition {
	if count > len(Templates) {
		count = len(Templates)
	}

	picks := rng.Perm(len(Templates))[:count]

	quests := make([]model.QuestDefinition, 0, count)
	for i, p := range picks {
		t := Templates[p]
		quests = append(quests, model.QuestDefinition{
			ID:          QuestID(date, i),
			QuestDate:   date.UTC().Truncate(24 * time.Hour),
			Index:       i,
			Type:        t.Type,
			Title:       t.Title,
			Description: t.Description,
			Requirement: t.Requirement,
			Reward:      t.Reward,
			Icon:        t.Icon,
		})
	}
	return quests
}
