package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/models"
	"github.com/yeremiapane/restroflow/utils"
)

// Notifier delivers an outbound message to a party's contact.
type Notifier interface {
	Notify(ctx context.Context, contact, message string) error
}

// LogNotifier only writes the message to the log. It is used when no broker
// is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, contact, message string) error {
	utils.InfoLogger.WithFields(logrus.Fields{
		"contact": contact,
	}).Info("notification: " + message)
	return nil
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, contact, message string) error

func (f NotifierFunc) Notify(ctx context.Context, contact, message string) error {
	return f(ctx, contact, message)
}

func seatedMessage(name string, tableNumbers []string) string {
	label := "table"
	if len(tableNumbers) > 1 {
		label = "tables"
	}
	return fmt.Sprintf("Hi %s, your %s %s is ready! Please proceed to the host stand.",
		name, label, strings.Join(tableNumbers, models.TableNumberSeparator))
}
