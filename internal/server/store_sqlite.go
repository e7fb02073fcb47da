package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore implements Store on the goose-migrated schema.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type sqlTxKey struct{}

// querier is the part of *sql.DB and *sql.Tx the store uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction bound to ctx, if any.
func (s *SQLiteStore) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var org, role sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &org, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if org.Valid {
		u.Organization = &org.String
	}
	if role.Valid {
		u.Role = &role.String
	}
	return u, nil
}

func (s *SQLiteStore) User(ctx context.Context, id int64) (User, error) {
	return scanUser(s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, email, organization, role FROM users WHERE id = ?
	`, id))
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (User, error) {
	// email is declared COLLATE NOCASE.
	return scanUser(s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, email, organization, role FROM users WHERE email = ?
	`, email))
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u NewUser) (User, error) {
	return scanUser(s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO users (name, email, organization, role)
		VALUES (?, ?, ?, ?)
		RETURNING id, name, email, organization, role
	`, u.Name, u.Email, nullString(u.Organization), nullString(u.Role)))
}

// UpdateUser keeps the stored value of every nil patch field.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, p UserPatch) (User, error) {
	return scanUser(s.conn(ctx).QueryRowContext(ctx, `
		UPDATE users SET
			name = COALESCE(?, name),
			email = COALESCE(?, email),
			organization = COALESCE(?, organization),
			role = COALESCE(?, role)
		WHERE id = ?
		RETURNING id, name, email, organization, role
	`, nullString(p.Name), nullString(p.Email), nullString(p.Organization), nullString(p.Role), id))
}

func (s *SQLiteStore) CreateAssessment(ctx context.Context, a NewAssessment) (Assessment, error) {
	var out Assessment
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO assessments (user_id, reactive_score, strategic_score, interpretation, date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, user_id, reactive_score, strategic_score, interpretation, date
	`, a.UserID, a.ReactiveScore, a.StrategicScore, a.Interpretation, a.Date.UTC().Format(isoMillis)).Scan(
		&out.ID, &out.UserID, &out.ReactiveScore, &out.StrategicScore, &out.Interpretation, &out.Date,
	)
	return out, err
}

func (s *SQLiteStore) Assessment(ctx context.Context, id int64) (Assessment, error) {
	var a Assessment
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, reactive_score, strategic_score, interpretation, date
		FROM assessments WHERE id = ?
	`, id).Scan(&a.ID, &a.UserID, &a.ReactiveScore, &a.StrategicScore, &a.Interpretation, &a.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (s *SQLiteStore) UserAssessments(ctx context.Context, userID int64) ([]Assessment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, user_id, reactive_score, strategic_score, interpretation, date
		FROM assessments WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.UserID, &a.ReactiveScore, &a.StrategicScore, &a.Interpretation, &a.Date); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveQuestionResponse(ctx context.Context, r NewQuestionResponse) (AssessmentQuestion, error) {
	var q AssessmentQuestion
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO assessment_questions (assessment_id, question_id, value, category)
		VALUES (?, ?, ?, ?)
		RETURNING id, assessment_id, question_id, value, category
	`, r.AssessmentID, r.QuestionID, r.Value, r.Category).Scan(
		&q.ID, &q.AssessmentID, &q.QuestionID, &q.Value, &q.Category,
	)
	return q, err
}

func (s *SQLiteStore) AssessmentQuestions(ctx context.Context, assessmentID int64) ([]AssessmentQuestion, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, assessment_id, question_id, value, category
		FROM assessment_questions WHERE assessment_id = ? ORDER BY question_id
	`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssessmentQuestion
	for rows.Next() {
		var q AssessmentQuestion
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.QuestionID, &q.Value, &q.Category); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
