package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
)

type row interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// conn is what the queries below run on: a pool, a *sql.DB or an open
// transaction. Queries are written with $n placeholders.
type conn interface {
	exec(ctx context.Context, q string, args ...any) (int64, error)
	queryRow(ctx context.Context, q string, args ...any) row
	query(ctx context.Context, q string, args ...any) (rows, error)
	// lockClause is appended to SELECTs that lock rows for the transaction.
	lockClause() string
	// translate maps driver errors onto this package's sentinels.
	translate(err error) error
}

const (
	userColumns       = `id, username, total_points, frozen_points, created_at, updated_at`
	projectColumns    = `id, creator_id, title, description, max_points_per_option, votes_yes, votes_no, frozen_points, result_published, result, is_paused, created_at, settled_at`
	voteColumns       = `id, project_id, voter_id, option, points, created_at`
	entryColumns      = `id, user_id, project_id, entry_type, delta, frozen_delta, description, balance_after, frozen_after, created_at`
	withdrawalColumns = `id, user_id, points, status, created_at, reviewed_at`

	// projectSelect is projectColumns plus whether the creator has hidden the project.
	projectSelect = projectColumns + `, EXISTS (
		SELECT 1 FROM hidden_projects hc WHERE hc.project_id = projects.id AND hc.user_id = projects.creator_id
	)`
)

// --- users ---

func scanUser(r row) (*models.User, error) {
	var u models.User
	if err := r.Scan(&u.ID, &u.Username, &u.TotalPoints, &u.FrozenPoints, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func getUser(ctx context.Context, c conn, id uuid.UUID, lock bool) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if lock {
		q += c.lockClause()
	}
	u, err := scanUser(c.queryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(c.translate(err), "user", id)
	}
	return u, nil
}

func insertUser(ctx context.Context, c conn, u *models.User) error {
	_, err := c.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.TotalPoints, u.FrozenPoints, u.CreatedAt, u.UpdatedAt)
	return c.translate(err)
}

func updateUser(ctx context.Context, c conn, u models.User) error {
	n, err := c.exec(ctx, `
		UPDATE users SET total_points = $1, frozen_points = $2, updated_at = $3 WHERE id = $4
	`, u.TotalPoints, u.FrozenPoints, u.UpdatedAt, u.ID)
	if err != nil {
		return c.translate(err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

// lockUsers locks each user row in ascending id order so that two
// transactions touching overlapping users cannot deadlock.
func lockUsers(ctx context.Context, c conn, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	ids = sortedUnique(ids)
	users := make(map[uuid.UUID]models.User, len(ids))
	for _, id := range ids {
		u, err := getUser(ctx, c, id, true)
		if err != nil {
			return nil, err
		}
		users[id] = *u
	}
	return users, nil
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// --- projects and votes ---

func scanProject(r row) (*models.Project, error) {
	var (
		p       models.Project
		yes, no int64
		result  *string
	)
	if err := r.Scan(&p.ID, &p.CreatorID, &p.Title, &p.Description, &p.MaxPointsPerOption,
		&yes, &no, &p.FrozenPoints, &p.ResultPublished, &result, &p.IsPaused, &p.CreatedAt, &p.SettledAt,
		&p.HiddenByCreator); err != nil {
		return nil, err
	}
	p.Votes = map[models.Option]int64{models.OptionYes: yes, models.OptionNo: no}
	if result != nil {
		opt := models.Option(*result)
		p.Result = &opt
	}
	return &p, nil
}

func getProject(ctx context.Context, c conn, id uuid.UUID, lock bool) (*models.Project, error) {
	q := `SELECT ` + projectSelect + ` FROM projects WHERE id = $1`
	if lock {
		q += c.lockClause()
	}
	p, err := scanProject(c.queryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(c.translate(err), "project", id)
	}
	if err := loadVotes(ctx, c, p); err != nil {
		return nil, err
	}
	return p, nil
}

func loadVotes(ctx context.Context, c conn, p *models.Project) error {
	rs, err := c.query(ctx, `SELECT `+voteColumns+` FROM votes WHERE project_id = $1 ORDER BY seq`, p.ID)
	if err != nil {
		return c.translate(err)
	}
	defer rs.Close()
	p.VoteDetails = nil
	for rs.Next() {
		var (
			v   models.VoteDetail
			opt string
		)
		if err := rs.Scan(&v.ID, &v.ProjectID, &v.VoterID, &opt, &v.Points, &v.CreatedAt); err != nil {
			return err
		}
		v.Option = models.Option(opt)
		p.VoteDetails = append(p.VoteDetails, v)
	}
	return c.translate(rs.Err())
}

func listProjects(ctx context.Context, c conn, viewer uuid.UUID) ([]*models.Project, error) {
	rs, err := c.query(ctx, `
		SELECT `+projectSelect+` FROM projects
		WHERE NOT EXISTS (
			SELECT 1 FROM hidden_projects h WHERE h.project_id = projects.id AND h.user_id = $1
		)
		ORDER BY created_at DESC
	`, viewer)
	if err != nil {
		return nil, c.translate(err)
	}
	var list []*models.Project
	for rs.Next() {
		p, err := scanProject(rs)
		if err != nil {
			rs.Close()
			return nil, err
		}
		list = append(list, p)
	}
	rs.Close()
	if err := rs.Err(); err != nil {
		return nil, c.translate(err)
	}
	// Votes are loaded after the cursor closes; SQLite runs on one connection.
	for _, p := range list {
		if err := loadVotes(ctx, c, p); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func insertProject(ctx context.Context, c conn, p *models.Project) error {
	_, err := c.exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.CreatorID, p.Title, p.Description, p.MaxPointsPerOption,
		p.Votes[models.OptionYes], p.Votes[models.OptionNo], p.FrozenPoints,
		p.ResultPublished, resultArg(p.Result), p.IsPaused, p.CreatedAt, p.SettledAt)
	return c.translate(err)
}

func updateProject(ctx context.Context, c conn, p *models.Project) error {
	_, err := c.exec(ctx, `
		UPDATE projects
		SET votes_yes = $1, votes_no = $2, frozen_points = $3, result_published = $4,
		    result = $5, is_paused = $6, settled_at = $7
		WHERE id = $8
	`, p.Votes[models.OptionYes], p.Votes[models.OptionNo], p.FrozenPoints, p.ResultPublished,
		resultArg(p.Result), p.IsPaused, p.SettledAt, p.ID)
	return c.translate(err)
}

func resultArg(r *models.Option) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func insertVote(ctx context.Context, c conn, v models.VoteDetail) error {
	_, err := c.exec(ctx, `
		INSERT INTO votes (`+voteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.ProjectID, v.VoterID, string(v.Option), v.Points, v.CreatedAt)
	return c.translate(err)
}

// --- hidden projects ---

func hiddenBy(ctx context.Context, c conn, projectID uuid.UUID, users map[uuid.UUID]models.User) (map[uuid.UUID]bool, error) {
	rs, err := c.query(ctx, `SELECT user_id FROM hidden_projects WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, c.translate(err)
	}
	defer rs.Close()
	hidden := make(map[uuid.UUID]bool)
	for rs.Next() {
		var id uuid.UUID
		if err := rs.Scan(&id); err != nil {
			return nil, err
		}
		if _, ok := users[id]; ok {
			hidden[id] = true
		}
	}
	return hidden, c.translate(rs.Err())
}

func insertHidden(ctx context.Context, c conn, k models.HiddenKey) error {
	_, err := c.exec(ctx, `
		INSERT INTO hidden_projects (user_id, project_id) VALUES ($1, $2)
		ON CONFLICT (user_id, project_id) DO NOTHING
	`, k.UserID, k.ProjectID)
	return c.translate(err)
}

// --- history ---

func insertEntry(ctx context.Context, c conn, e models.LedgerEntry) error {
	_, err := c.exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.UserID, e.ProjectID, string(e.Type), e.Delta, e.FrozenDelta, e.Description,
		e.BalanceAfter, e.FrozenAfter, e.CreatedAt)
	return c.translate(err)
}

func listEntries(ctx context.Context, c conn, q string, args ...any) ([]models.LedgerEntry, error) {
	rs, err := c.query(ctx, q, args...)
	if err != nil {
		return nil, c.translate(err)
	}
	defer rs.Close()
	list := []models.LedgerEntry{}
	for rs.Next() {
		var (
			e   models.LedgerEntry
			typ string
		)
		if err := rs.Scan(&e.ID, &e.UserID, &e.ProjectID, &typ, &e.Delta, &e.FrozenDelta, &e.Description,
			&e.BalanceAfter, &e.FrozenAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = models.EntryType(typ)
		list = append(list, e)
	}
	return list, c.translate(rs.Err())
}

func userHistory(ctx context.Context, c conn, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE user_id = $1 ORDER BY seq DESC`
	if limit > 0 {
		return listEntries(ctx, c, q+` LIMIT $2`, userID, limit)
	}
	return listEntries(ctx, c, q, userID)
}

func projectEntries(ctx context.Context, c conn, projectID uuid.UUID) ([]models.LedgerEntry, error) {
	return listEntries(ctx, c, `SELECT `+entryColumns+` FROM ledger_entries WHERE project_id = $1 ORDER BY seq`, projectID)
}

// --- withdrawals ---

func scanWithdrawal(r row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.Scan(&w.ID, &w.UserID, &w.Points, &w.Status, &w.CreatedAt, &w.ReviewedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func getWithdrawal(ctx context.Context, c conn, id uuid.UUID, lock bool) (*models.Withdrawal, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	if lock {
		q += c.lockClause()
	}
	w, err := scanWithdrawal(c.queryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(c.translate(err), "withdrawal", id)
	}
	return w, nil
}

func listWithdrawals(ctx context.Context, c conn, status string) ([]models.Withdrawal, error) {
	rs, err := c.query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, c.translate(err)
	}
	defer rs.Close()
	list := []models.Withdrawal{}
	for rs.Next() {
		w, err := scanWithdrawal(rs)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, c.translate(rs.Err())
}

func insertWithdrawal(ctx context.Context, c conn, w *models.Withdrawal) error {
	_, err := c.exec(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.UserID, w.Points, w.Status, w.CreatedAt, w.ReviewedAt)
	return c.translate(err)
}

func updateWithdrawal(ctx context.Context, c conn, w *models.Withdrawal) error {
	_, err := c.exec(ctx, `UPDATE withdrawals SET status = $1, reviewed_at = $2 WHERE id = $3`,
		w.Status, w.ReviewedAt, w.ID)
	return c.translate(err)
}

// apply writes a Changeset. Users and projects go before the votes and
// entries that reference them.
func apply(ctx context.Context, c conn, cs *Changeset) error {
	if cs.NewUser != nil {
		if err := insertUser(ctx, c, cs.NewUser); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
	}
	if cs.NewProject != nil {
		if err := insertProject(ctx, c, cs.NewProject); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
	}
	if cs.Project != nil {
		if err := updateProject(ctx, c, cs.Project); err != nil {
			return fmt.Errorf("update project: %w", err)
		}
	}
	for _, u := range cs.Users {
		if err := updateUser(ctx, c, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}
	for _, v := range cs.NewVotes {
		if err := insertVote(ctx, c, v); err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
	}
	if cs.NewWithdrawal != nil {
		if err := insertWithdrawal(ctx, c, cs.NewWithdrawal); err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}
	}
	if cs.Withdrawal != nil {
		if err := updateWithdrawal(ctx, c, cs.Withdrawal); err != nil {
			return fmt.Errorf("update withdrawal: %w", err)
		}
	}
	for _, e := range cs.Entries {
		if err := insertEntry(ctx, c, e); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	for _, k := range cs.Hide {
		if err := insertHidden(ctx, c, k); err != nil {
			return fmt.Errorf("hide project: %w", err)
		}
	}
	return nil
}
