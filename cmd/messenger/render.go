package main

import (
	"fmt"
	"housing-chat/domain"
	"io"
	"strconv"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const previewLength = 40

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderInbox(out io.Writer, display DisplayConfig, conversations []domain.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(out, "No conversation yet.")
		return
	}
	table := newTable(out, []string{"With", "Last message", "At", "Unread"})
	for _, conversation := range conversations {
		preview, at := "", ""
		if conversation.LastMessage != nil {
			preview = truncate(conversation.LastMessage.Body, previewLength)
			at = conversation.LastMessage.CreatedAt.Local().Format(display.TimeFormat)
		}
		unread := strconv.Itoa(conversation.UnreadCount)
		if conversation.UnreadCount > 0 {
			unread = color.Style{color.FgYellow, color.OpBold}.Sprint(unread)
		}
		table.Append([]string{string(conversation.Counterpart), preview, at, unread})
	}
	table.Render()

	total := lo.SumBy(conversations, func(c domain.Conversation) int { return c.UnreadCount })
	fmt.Fprintf(out, "\n%d conversation(s), %d unread message(s)\n", len(conversations), total)
}

func renderThread(out io.Writer, display DisplayConfig, viewer domain.ParticipantID, messages []domain.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(out, "No message yet, say hello!")
		return
	}
	table := newTable(out, []string{"At", "From", "Message"})
	for _, message := range messages {
		from := string(message.SenderID)
		switch {
		case message.SenderID == viewer:
			from = color.Gray.Sprint("you")
		case message.UnreadBy(viewer):
			from = color.Green.Sprint(from + " (new)")
		}
		table.Append([]string{message.CreatedAt.Local().Format(display.TimeFormat), from, message.Body})
	}
	table.Render()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
