package database

import (
	"context"
	"errors"
	"filevault/internal/models"

	"github.com/jackc/pgx/v5"
)

// PageSize is the fixed number of nodes returned per listing page.
const PageSize = 20

var (
	ErrParentNotFound  = errors.New("parent not found")
	ErrParentNotFolder = errors.New("parent is not a folder")
)

type CreateFileParams struct {
	UserID    int64
	Name      string
	FileType  string
	IsPublic  bool
	ParentID  *int64
	LocalPath *string
}

// CreateFile inserts a folder, file or image node. A non-nil ParentID must
// reference an existing folder node; inserting under a missing or non-folder
// parent is rejected.
func (s *PostgresStore) CreateFile(ctx context.Context, arg CreateFileParams) (*models.FileNode, error) {
	if arg.ParentID != nil {
		var parentType string
		err := s.pool.QueryRow(ctx, "SELECT file_type FROM files WHERE id = $1", *arg.ParentID).Scan(&parentType)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parentType != models.FileTypeFolder {
			return nil, ErrParentNotFolder
		}
	}

	query := `
		INSERT INTO files (user_id, name, file_type, is_public, parent_id, local_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, file_type, is_public, parent_id, local_path, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		arg.UserID,
		arg.Name,
		arg.FileType,
		arg.IsPublic,
		arg.ParentID,
		arg.LocalPath,
	)

	var file models.FileNode
	err := row.Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.FileType,
		&file.IsPublic,
		&file.ParentID,
		&file.LocalPath,
		&file.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *PostgresStore) GetFileByID(ctx context.Context, id int64) (*models.FileNode, error) {
	query := `
		SELECT id, user_id, name, file_type, is_public, parent_id, local_path, created_at
		FROM files
		WHERE id = $1
	`
	var file models.FileNode

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.FileType,
		&file.IsPublic,
		&file.ParentID,
		&file.LocalPath,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &file, nil
}

// ListFiles returns the caller's nodes under parentID (nil means root) in
// insertion order, in fixed pages of PageSize. Out-of-range pages return an
// empty slice.
func (s *PostgresStore) ListFiles(ctx context.Context, userID int64, parentID *int64, page int) ([]models.FileNode, error) {
	if page < 0 {
		page = 0
	}

	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `
			SELECT id, user_id, name, file_type, is_public, parent_id, local_path, created_at
			FROM files
			WHERE user_id = $1 AND parent_id IS NULL
			ORDER BY id
			LIMIT $2 OFFSET $3
		`
		rows, err = s.pool.Query(ctx, query, userID, PageSize, page*PageSize)
	} else {
		query := `
			SELECT id, user_id, name, file_type, is_public, parent_id, local_path, created_at
			FROM files
			WHERE user_id = $1 AND parent_id = $2
			ORDER BY id
			LIMIT $3 OFFSET $4
		`
		rows, err = s.pool.Query(ctx, query, userID, *parentID, PageSize, page*PageSize)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.FileNode
	for rows.Next() {
		var file models.FileNode
		err := rows.Scan(
			&file.ID,
			&file.UserID,
			&file.Name,
			&file.FileType,
			&file.IsPublic,
			&file.ParentID,
			&file.LocalPath,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if files == nil {
		return []models.FileNode{}, nil
	}

	return files, nil
}

// SetFilePublic flips the visibility of a node owned by ownerID. It returns
// (nil, nil) when the node does not exist or belongs to someone else; the
// two cases are indistinguishable to the caller on purpose.
func (s *PostgresStore) SetFilePublic(ctx context.Context, id, ownerID int64, isPublic bool) (*models.FileNode, error) {
	query := `
		UPDATE files
		SET is_public = $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, user_id, name, file_type, is_public, parent_id, local_path, created_at
	`
	var file models.FileNode

	err := s.pool.QueryRow(ctx, query, isPublic, id, ownerID).Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.FileType,
		&file.IsPublic,
		&file.ParentID,
		&file.LocalPath,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &file, nil
}

func (s *PostgresStore) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM files").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
