package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateNotificationID() string {
	return fmt.Sprintf("ntf_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateBattleID() string {
	return fmt.Sprintf("battle_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateStreamID() string {
	return fmt.Sprintf("stream_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}
