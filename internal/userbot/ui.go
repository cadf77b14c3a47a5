package userbot

import (
	"fmt"

	"telegram-chat-summarizer/internal/domain/model"
)

// statusIcons mirrors the live status line shown to the requester.
var statusIcons = map[model.Status]string{
	model.StatusPendingPrompt:          "✍️",
	model.StatusQueued:                 "📥",
	model.StatusStarted:                "🚀",
	model.StatusExtractingHistory:      "📜",
	model.StatusProgress:               "📜",
	model.StatusWaiting:                "⏳",
	model.StatusExtractingParticipants: "👥",
	model.StatusCallingLLM:             "🤖",
	model.StatusSuccess:                "✅",
	model.StatusFailed:                 "❌",
}

var statusLabels = map[model.Status]string{
	model.StatusPendingPrompt:          "Waiting for your prompt",
	model.StatusQueued:                 "Queued",
	model.StatusStarted:                "Starting",
	model.StatusExtractingHistory:      "Reading chat history",
	model.StatusProgress:               "Reading chat history",
	model.StatusWaiting:                "Paused by rate limit",
	model.StatusExtractingParticipants: "Collecting participants",
	model.StatusCallingLLM:             "Summarizing",
	model.StatusSuccess:                "Done",
	model.StatusFailed:                 "Failed",
}

// RenderStatus formats one status event as the text of the live status
// message. Unknown statuses render as-is rather than being dropped.
func RenderStatus(ev model.StatusEvent) string {
	icon, ok := statusIcons[ev.Status]
	if !ok {
		icon = "ℹ️"
	}
	label, ok := statusLabels[ev.Status]
	if !ok {
		label = string(ev.Status)
	}

	line := fmt.Sprintf("%s %s", icon, label)
	if ev.Progress != nil {
		line = fmt.Sprintf("%s (%d messages)", line, *ev.Progress)
	}
	if ev.Detail != "" {
		line = fmt.Sprintf("%s\n%s", line, ev.Detail)
	}
	return line
}
