package postgres

import (
	"context"
	"fmt"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
)

// EvidenceRepository. All tables read here are owned by the ingestion layer.

func (db *DB) PersonExists(ctx context.Context, personID string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM people WHERE id = $1)`, personID).Scan(&exists)
	return exists, err
}

func (db *DB) ListPeople(ctx context.Context) ([]domain.Person, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT p.id, p.name, COALESCE(p.aliases, '{}'),
               (SELECT COUNT(*) FROM project_people pp WHERE pp.person_id = p.id)
        FROM people p
        ORDER BY p.id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []domain.Person
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Aliases, &p.ProjectCount); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (db *DB) PersonEvidence(ctx context.Context, personID string) (domain.PersonEvidence, error) {
	var ev domain.PersonEvidence

	projects, err := db.queryProjects(ctx, `
        SELECT `+projectColumns+`
        FROM projects p
        JOIN project_people pp ON pp.project_id = p.id
        WHERE pp.person_id = $1
        ORDER BY p.id
    `, personID)
	if err != nil {
		return ev, err
	}
	ev.Projects = projects

	ev.Milestones, err = db.queryMilestones(ctx, `
        SELECT m.id, m.project_id, m.title, m.status, COALESCE(m.poa_status, ''), m.due_date, m.poa_approved_at
        FROM milestones m
        JOIN project_people pp ON pp.project_id = m.project_id
        WHERE pp.person_id = $1
        ORDER BY m.id
    `, personID)
	if err != nil {
		return ev, err
	}

	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM monthly_reports r
        JOIN project_people pp ON pp.project_id = r.project_id
        WHERE pp.person_id = $1
    `, personID).Scan(&ev.ReportCount)
	if err != nil {
		return ev, err
	}

	ev.Ratings, err = db.queryRatings(ctx, `
        SELECT rv.rating
        FROM reviews rv
        JOIN project_people pp ON pp.project_id = rv.project_id
        WHERE pp.person_id = $1
    `, personID)
	if err != nil {
		return ev, err
	}

	err = db.Pool.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE EXISTS (
                   SELECT 1 FROM concern_responses cr WHERE cr.concern_id = c.id))
        FROM concerns c
        JOIN project_people pp ON pp.project_id = c.project_id
        WHERE pp.person_id = $1
    `, personID).Scan(&ev.Concerns, &ev.ConcernsAnswered)
	if err != nil {
		return ev, err
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT f.severity
        FROM flags f
        JOIN project_people pp ON pp.project_id = f.target_id AND f.target_type = 'project'
        WHERE pp.person_id = $1 AND f.status = 'confirmed'
    `, personID)
	if err != nil {
		return ev, err
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		if err := rows.Scan(&severity); err != nil {
			return ev, err
		}
		ev.ConfirmedFlagSeverities = append(ev.ConfirmedFlagSeverities, severity)
	}
	return ev, rows.Err()
}

func (db *DB) ListFundedProjects(ctx context.Context, limit int) ([]domain.Project, error) {
	return db.queryProjects(ctx, `
        SELECT `+projectColumns+`
        FROM projects p
        WHERE p.funding_status = 'funded'
        ORDER BY p.id
        LIMIT $1
    `, limit)
}

func (db *DB) ProjectEvidence(ctx context.Context, projectID string) (domain.ProjectEvidence, error) {
	var ev domain.ProjectEvidence

	projects, err := db.queryProjects(ctx, `
        SELECT `+projectColumns+`
        FROM projects p
        WHERE p.id = $1
    `, projectID)
	if err != nil {
		return ev, err
	}
	if len(projects) == 0 {
		return ev, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	ev.Project = projects[0]

	ev.Milestones, err = db.queryMilestones(ctx, `
        SELECT m.id, m.project_id, m.title, m.status, COALESCE(m.poa_status, ''), m.due_date, m.poa_approved_at
        FROM milestones m
        WHERE m.project_id = $1
        ORDER BY m.id
    `, projectID)
	if err != nil {
		return ev, err
	}

	ev.Ratings, err = db.queryRatings(ctx, `SELECT rating FROM reviews WHERE project_id = $1`, projectID)
	return ev, err
}

func (db *DB) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return db.queryProjects(ctx, `
        SELECT `+projectColumns+`
        FROM projects p
        ORDER BY p.id
    `)
}

func (db *DB) ListMilestones(ctx context.Context) ([]domain.Milestone, error) {
	return db.queryMilestones(ctx, `
        SELECT m.id, m.project_id, m.title, m.status, COALESCE(m.poa_status, ''), m.due_date, m.poa_approved_at
        FROM milestones m
        ORDER BY m.id
    `)
}

const projectColumns = `
        p.id, p.title, COALESCE(p.description, ''), COALESCE(p.problem, ''), COALESCE(p.solution, ''),
        p.fund_id, COALESCE(p.fund_name, ''), COALESCE(p.category, ''),
        p.status, p.funding_status, COALESCE(p.funding_amount, 0), p.updated_at,
        COALESCE((SELECT array_agg(pp2.person_id ORDER BY pp2.person_id)
                  FROM project_people pp2 WHERE pp2.project_id = p.id), '{}'),
        COALESCE(p.github_stars, 0), COALESCE(p.github_forks, 0),
        COALESCE(p.github_contributors, 0), COALESCE(p.github_activity_score, 0),
        COALESCE(p.onchain_tx_count, 0), COALESCE(p.onchain_unique_addresses, 0),
        COALESCE(p.onchain_total_received, 0)`

func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Problem, &p.Solution,
			&p.FundID, &p.FundName, &p.Category,
			&p.Status, &p.FundingStatus, &p.FundingAmount, &p.UpdatedAt,
			&p.PersonIDs,
			&p.GithubStars, &p.GithubForks, &p.GithubContributors, &p.GithubActivityScore,
			&p.OnchainTxCount, &p.OnchainUniqueAddresses, &p.OnchainTotalReceived,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *DB) queryMilestones(ctx context.Context, query string, args ...any) ([]domain.Milestone, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Status, &m.PoAStatus, &m.DueDate, &m.ApprovedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (db *DB) queryRatings(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
