package admin

import (
	"sync"
	"time"

	"kinobot/internal/catalog"
)

// State is the position of one admin session in the workflow.
type State int

const (
	StateIdle State = iota
	StateSingleAwaitPoster
	StateSingleAwaitVideo
	StateSeriesAwaitPoster
	StateSeriesCollectEpisodes
	StateEditSelectType
	StateEditSelectCode
	StateEditSelectAction
	StateEditAwaitPayload
	StateDeleteAwaitCode
)

var stateNames = map[State]string{
	StateIdle:                  "idle",
	StateSingleAwaitPoster:     "single_await_poster",
	StateSingleAwaitVideo:      "single_await_video",
	StateSeriesAwaitPoster:     "series_await_poster",
	StateSeriesCollectEpisodes: "series_collect_episodes",
	StateEditSelectType:        "edit_select_type",
	StateEditSelectCode:        "edit_select_code",
	StateEditSelectAction:      "edit_select_action",
	StateEditAwaitPayload:      "edit_await_payload",
	StateDeleteAwaitCode:       "delete_await_code",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Action is the edit selected in StateEditSelectAction.
type Action string

const (
	ActionPoster         Action = "poster"
	ActionCaption        Action = "caption"
	ActionVideo          Action = "video"
	ActionAddEpisode     Action = "add_episode"
	ActionReplaceEpisode Action = "replace_episode"
	ActionDeleteEpisode  Action = "delete_episode"
)

// actionsFor lists the edit actions offered for an entry kind.
func actionsFor(kind catalog.Kind) []Action {
	if kind == catalog.KindSeries {
		return []Action{ActionPoster, ActionCaption, ActionAddEpisode, ActionReplaceEpisode, ActionDeleteEpisode}
	}
	return []Action{ActionPoster, ActionCaption, ActionVideo}
}

func actionAllowed(kind catalog.Kind, action Action) bool {
	for _, a := range actionsFor(kind) {
		if a == action {
			return true
		}
	}
	return false
}

// Session is the workflow context of one administrator. Returning to
// StateIdle clears every field except the chat.
type Session struct {
	mu sync.Mutex

	chatID     int64
	touched    time.Time
	state      State
	targetType catalog.Kind
	targetCode string
	pending    Action
	// draft is the entry under construction during ingest.
	draft catalog.Entry
	// reserved is the allocator reservation held by the draft.
	reserved string
}

func (s *Session) clear() {
	s.state = StateIdle
	s.targetType = ""
	s.targetCode = ""
	s.pending = ""
	s.draft = catalog.Entry{}
	s.reserved = ""
}
