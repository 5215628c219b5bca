package main

import (
	"log"

	"github.com/m3rciful/quizbot/quiz/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("quizbot: %v", err)
	}
}
