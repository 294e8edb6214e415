package command

import (
	"fmt"
	"strings"
)

// ResponseFormatter renders command output as plain text, so the replies read
// the same in a terminal and in Telegram.
type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

func (f *ResponseFormatter) Info(title string) string {
	return fmt.Sprintf("[%s]\n", strings.ToUpper(title))
}

func (f *ResponseFormatter) Success(message string) string {
	return fmt.Sprintf("OK. %s *BEEP*\n", message)
}

func (f *ResponseFormatter) Error(err error) string {
	return fmt.Sprintf("COMMAND ERROR: %s\n", err.Error())
}

func (f *ResponseFormatter) Label(label, value string) string {
	return fmt.Sprintf("%s: %s\n", label, value)
}

func (f *ResponseFormatter) Usage(command string) string {
	return fmt.Sprintf("Usage: %s\n", command)
}

func (f *ResponseFormatter) List(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("› %s\n", item))
	}
	return sb.String()
}

func (f *ResponseFormatter) Combine(sections ...string) string {
	return strings.TrimRight(strings.Join(sections, "\n"), "\n")
}
