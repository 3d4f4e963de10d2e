package ui

import (
	"fmt"
	"strings"
)

// Reply keyboard labels. The router and admin workflow match on these.
const (
	BtnAddMovie  = "🎬 Add movie"
	BtnAddSeries = "📺 Add series"
	BtnEdit      = "✏️ Edit"
	BtnDelete    = "🗑 Delete"
	BtnFinish    = "✅ Finish"
	BtnCancel    = "❌ Cancel"
)

// Inline button labels.
const (
	BtnWatch      = "▶️ Watch"
	BtnWatchBot   = "▶️ Watch in bot"
	BtnCheck      = "✅ I've joined"
	BtnPublish    = "📢 Publish"
	BtnSkip       = "Skip"
	BtnTypeMovie  = "🎬 Movie"
	BtnTypeSeries = "📺 Series"
)

// User-facing texts.
const (
	Welcome        = "👋 Welcome! Send a movie code to get started."
	UsageHint      = "Send a numeric code, for example 4821."
	NotFound       = "❌ Nothing found for that code."
	StaleControl   = "⌛ This button has expired. Send the code again."
	JoinPrompt     = "🔒 To watch, join the channels below and press the check button."
	StillNotJoined = "You have not joined every channel yet."
	JoinConfirmed  = "✅ Thanks! Send a code to continue."
	NotAllowed     = "This action is for administrators."
	GenericFailure = "⚠️ Something went wrong. Please try again later."
	ChooseEpisode  = "Choose an episode:"
)

// Admin workflow texts.
const (
	AdminMenu           = "🛠 Admin menu. Choose an action."
	FinishOrCancelFirst = "Finish or cancel the current step first."
	Cancelled           = "Cancelled."

	AskPoster        = "Send the poster photo with its caption."
	NeedPhoto        = "Please send a photo with a caption."
	NeedCaption      = "The poster needs a caption. Send the photo again with a caption."
	AskVideo         = "Send the video."
	NeedVideo        = "Please send a video."
	AskEpisodes      = "Send episodes as videos. Put the episode number in each caption. Press Finish when done."
	NeedEpisodeVideo = "Please send an episode video with its number in the caption, or press Finish."
	NoEpisodeNumber  = "The caption has no episode number. Send the video again with a number in the caption."
	EpisodeRange     = "Episode numbers must be between 1 and 9999."
	NoEpisodesYet    = "Add at least one episode before finishing."

	AskType        = "What do you want to edit?"
	AskCode        = "Send the code."
	InvalidCode    = "Codes are up to four digits. Send the code again."
	ChooseType     = "Choose the entry type with the buttons above."
	ChooseAction   = "Choose an action with the buttons above."
	AskAction      = "Choose what to change:"
	AskNewPoster   = "Send the new poster photo. Add a caption to replace the text as well."
	AskNewCaption  = "Send the new caption text."
	AskNewVideo    = "Send the new video."
	AskAddEpisode  = "Send the new episode video with its number in the caption."
	AskReplaceEp   = "Send the replacement video with the episode number in the caption."
	AskDeleteEp    = "Send the number of the episode to delete."
	NeedText       = "Please send text."
	LastEpisode    = "A series needs at least one episode. Delete the whole entry instead."
	AskDeleteCode  = "Send the code of the entry to delete."
	StorageFailure = "⚠️ The catalog could not be saved. Operators were notified; try again later."
)

// Edit action labels.
const (
	ActPoster         = "🖼 Poster"
	ActCaption        = "📝 Caption"
	ActVideo          = "🎞 Video"
	ActAddEpisode     = "➕ Add episode"
	ActReplaceEpisode = "♻️ Replace episode"
	ActDeleteEpisode  = "➖ Delete episode"
)

// CodeReserved tells the admin which code a new entry will get.
func CodeReserved(code string) string {
	return fmt.Sprintf("Code %s reserved.", code)
}

// EpisodeAdded confirms an episode during series ingest.
func EpisodeAdded(n, total int) string {
	return fmt.Sprintf("Episode %d added (%d so far).", n, total)
}

// EpisodeTaken rejects a repeated episode number.
func EpisodeTaken(n int) string {
	return fmt.Sprintf("Episode %d already exists.", n)
}

// EpisodeMissing rejects an action on an absent episode.
func EpisodeMissing(n int) string {
	return fmt.Sprintf("Episode %d does not exist.", n)
}

// DuplicateMedia rejects media that is already catalogued.
func DuplicateMedia(code string) string {
	if code == "" {
		return "❗ This video is already in the catalog."
	}
	return fmt.Sprintf("❗ This video is already in the catalog under code %s.", code)
}

// CodeMissing rejects an unknown code in the admin workflow.
func CodeMissing(code string) string {
	return fmt.Sprintf("Code %s does not exist. Send another code.", code)
}

// WrongType rejects a code whose entry is of the other kind.
func WrongType(code, kind string) string {
	return fmt.Sprintf("Code %s is a %s. Send another code.", code, kind)
}

// Saved confirms a new entry.
func Saved(code string) string {
	return fmt.Sprintf("✅ Saved under code %s. Publish to the channel?", code)
}

// Published confirms an announcement.
func Published(code string) string {
	return fmt.Sprintf("📢 Code %s published.", code)
}

// PublishSkipped confirms the admin declined to publish.
func PublishSkipped(code string) string {
	return fmt.Sprintf("Code %s saved without publishing.", code)
}

// PublishFailed explains why publishing was refused or failed.
func PublishFailed(code, reason string) string {
	return fmt.Sprintf("Code %s was not published: %s", code, reason)
}

// Updated confirms an edit.
func Updated(code string) string {
	return fmt.Sprintf("✅ Code %s updated.", code)
}

// CaptionUpdated confirms a caption edit with the rendered result.
func CaptionUpdated(code, rendered string) string {
	return fmt.Sprintf("✅ Code %s caption is now:\n\n%s", code, rendered)
}

// Deleted confirms a deletion.
func Deleted(code string) string {
	return fmt.Sprintf("🗑 Code %s deleted.", code)
}

// ChannelNotUpdated is appended when a best-effort channel edit failed.
const ChannelNotUpdated = "The channel post could not be updated."

// ChannelNotRemoved is appended when retracting the channel post failed.
const ChannelNotRemoved = "The channel post could not be removed."

// JoinButton labels the subscribe button for the nth channel.
func JoinButton(n int) string {
	return fmt.Sprintf("➕ Join channel %d", n)
}

// EpisodeButton labels one episode control.
func EpisodeButton(n int) string {
	return fmt.Sprintf("Episode %d", n)
}

// EpisodeCaption is the caption of a delivered episode.
func EpisodeCaption(seriesTitle string, n int, title string) string {
	var parts []string
	if seriesTitle != "" {
		parts = append(parts, seriesTitle)
	}
	if title != "" {
		parts = append(parts, fmt.Sprintf("%d. %s", n, title))
	} else {
		parts = append(parts, fmt.Sprintf("Episode %d", n))
	}
	return strings.Join(parts, "\n")
}
