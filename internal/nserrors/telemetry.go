package nserrors

import (
	"fmt"

	"github.com/getsentry/sentry-go"
)

// ReportToSentry sends an EnhancedError to Sentry as a single, direct capture.
// It is called from the graph's InError transition; nothing else in this
// package auto-reports.
func ReportToSentry(ee *EnhancedError) {
	if ee == nil || ee.IsReported() {
		return
	}
	defer ee.MarkReported()

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		for key, value := range ee.GetContext() {
			scope.SetContext(key, map[string]any{"value": value})
		}
		event := sentry.NewEvent()
		event.Level = sentryLevel(ee.Category)
		event.Message = fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error())
		event.Exception = []sentry.Exception{{
			Type:  string(ee.Category),
			Value: ee.Err.Error(),
		}}
		sentry.CaptureEvent(event)
	})
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryState, CategoryResource:
		return sentry.LevelFatal
	case CategoryValidation, CategoryConfiguration:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
