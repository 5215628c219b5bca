package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/quizbot/quiz"
)

const (
	selectQuestions = `SELECT position, question FROM questions ORDER BY position`
	selectAnswers   = `SELECT question_position, position, answer, correct FROM answers ORDER BY question_position, position`

	insertQuestion = `INSERT INTO questions (position, question) VALUES (:position, :question)`
	insertAnswer   = `INSERT INTO answers (question_position, position, answer, correct)
		VALUES (:question_position, :position, :answer, :correct)`
)

type questionRow struct {
	Position int    `db:"position"`
	Question string `db:"question"`
}

type answerRow struct {
	QuestionPosition int    `db:"question_position"`
	Position         int    `db:"position"`
	Answer           string `db:"answer"`
	Correct          bool   `db:"correct"`
}

// SQLBackend stores the collection in two tables, questions and answers,
// ordered by position. It works with any driver sqlx knows a bindvar for.
type SQLBackend struct {
	db *sqlx.DB
}

// NewSQLBackend wraps an open connection. The schema is expected to be
// migrated already.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

// Name implements Backend.
func (b *SQLBackend) Name() string { return b.db.DriverName() }

// Load implements Backend.
func (b *SQLBackend) Load(ctx context.Context) ([]quiz.Question, error) {
	var qs []questionRow
	if err := b.db.SelectContext(ctx, &qs, selectQuestions); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	var as []answerRow
	if err := b.db.SelectContext(ctx, &as, selectAnswers); err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}

	out := make([]quiz.Question, 0, len(qs))
	index := make(map[int]int, len(qs))
	for _, row := range qs {
		index[row.Position] = len(out)
		out = append(out, quiz.Question{Text: row.Question})
	}
	for _, row := range as {
		i, ok := index[row.QuestionPosition]
		if !ok {
			return nil, fmt.Errorf("answer %d references missing question %d", row.Position, row.QuestionPosition)
		}
		out[i].Answers = append(out[i].Answers, quiz.Answer{Text: row.Answer, Correct: row.Correct})
	}
	return out, nil
}

// Save implements Backend by replacing every row in one transaction.
func (b *SQLBackend) Save(ctx context.Context, questions []quiz.Question) (err error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM answers`); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	qRows := make([]questionRow, 0, len(questions))
	var aRows []answerRow
	for i, q := range questions {
		qRows = append(qRows, questionRow{Position: i, Question: q.Text})
		for j, a := range q.Answers {
			aRows = append(aRows, answerRow{QuestionPosition: i, Position: j, Answer: a.Text, Correct: a.Correct})
		}
	}
	if len(qRows) > 0 {
		if _, err = tx.NamedExecContext(ctx, insertQuestion, qRows); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}
	if len(aRows) > 0 {
		if _, err = tx.NamedExecContext(ctx, insertAnswer, aRows); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
