package main

// Notifier adapters register themselves via init().
import (
	_ "github.com/Strob0t/ClawCouncil/internal/adapter/discord"
	_ "github.com/Strob0t/ClawCouncil/internal/adapter/slack"
)
