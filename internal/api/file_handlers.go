package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"filevault/internal/database"
	"filevault/internal/models"
	"filevault/internal/queue"

	"github.com/go-chi/chi/v5"
)

type UploadRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID int64  `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"`
}

// FileResponse is the wire shape of a file node. ParentID uses the sentinel
// 0 for root-level nodes.
type FileResponse struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID int64  `json:"parentId"`
}

func toFileResponse(f *models.FileNode) FileResponse {
	resp := FileResponse{
		ID:       f.ID,
		UserID:   f.UserID,
		Name:     f.Name,
		Type:     f.FileType,
		IsPublic: f.IsPublic,
	}
	if f.ParentID != nil {
		resp.ParentID = *f.ParentID
	}
	return resp
}

func validFileType(t string) bool {
	return t == models.FileTypeFolder || t == models.FileTypeFile || t == models.FileTypeImage
}

// @Summary      Upload a file node
// @Description  Creates a folder, or stores a base64 payload as a file/image. Images are queued for thumbnail generation.
// @Tags         files
// @Accept       json
// @Produce      json
// @Success      201  {object}  FileResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /files [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing name")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Missing name")
		return
	}
	if !validFileType(req.Type) {
		respondError(w, http.StatusBadRequest, "Missing type")
		return
	}
	if req.Data == "" && req.Type != models.FileTypeFolder {
		respondError(w, http.StatusBadRequest, "Missing data")
		return
	}

	var parentID *int64
	if req.ParentID != 0 {
		pid := req.ParentID
		parentID = &pid
	}

	params := database.CreateFileParams{
		UserID:   userID,
		Name:     req.Name,
		FileType: req.Type,
		IsPublic: req.IsPublic,
		ParentID: parentID,
	}

	if req.Type != models.FileTypeFolder {
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Missing data")
			return
		}

		localPath, err := s.storage.Save(data)
		if err != nil {
			s.log.Error(r.Context(), "failed to store content", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		params.LocalPath = &localPath
	}

	file, err := s.store.CreateFile(r.Context(), params)
	if err != nil {
		// The content was written before the metadata insert; don't leave
		// an unreachable artifact behind.
		if params.LocalPath != nil {
			if rmErr := s.storage.Remove(*params.LocalPath); rmErr != nil {
				s.log.Warn(r.Context(), "failed to remove orphaned content", "path", *params.LocalPath, "error", rmErr)
			}
		}
		switch {
		case errors.Is(err, database.ErrParentNotFound):
			respondError(w, http.StatusBadRequest, "Parent not found")
		case errors.Is(err, database.ErrParentNotFolder):
			respondError(w, http.StatusBadRequest, "Parent is not a folder")
		default:
			s.log.Error(r.Context(), "failed to create file record", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	if file.FileType == models.FileTypeImage {
		job, err := s.thumbQueue.Enqueue(r.Context(), queue.Job{UserID: userID, FileID: file.ID})
		if err != nil {
			s.log.Error(r.Context(), "failed to enqueue thumbnail job", "file_id", file.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		s.log.Info(r.Context(), "thumbnail job enqueued", "job_id", job.ID, "file_id", file.ID)
	}

	respondJSON(w, http.StatusCreated, toFileResponse(file))
}

func fileIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fileId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// @Summary      File metadata
// @Description  Returns a node readable by the caller: public, or owned.
// @Tags         files
// @Produce      json
// @Success      200  {object}  FileResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /files/{fileId} [get]
func (s *Server) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	fileID, ok := fileIDFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	file, err := s.store.GetFileByID(r.Context(), fileID)
	if err != nil {
		s.log.Error(r.Context(), "file lookup failed", "file_id", fileID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	if !file.CanRead(userID) {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	respondJSON(w, http.StatusOK, toFileResponse(file))
}

// @Summary      List file nodes
// @Description  Lists the caller's nodes under parentId (0 or absent for root), in pages of 20.
// @Tags         files
// @Produce      json
// @Success      200  {array}   FileResponse
// @Failure      500  {object}  map[string]string
// @Router       /files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var parentID *int64
	if raw := r.URL.Query().Get("parentId"); raw != "" && raw != "0" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondJSON(w, http.StatusOK, []FileResponse{})
			return
		}
		parentID = &id
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	files, err := s.store.ListFiles(r.Context(), userID, parentID, page)
	if err != nil {
		s.log.Error(r.Context(), "failed to list files", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]FileResponse, 0, len(files))
	for i := range files {
		resp = append(resp, toFileResponse(&files[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) setVisibility(w http.ResponseWriter, r *http.Request, isPublic bool) {
	userID := UserIDFromContext(r.Context())

	fileID, ok := fileIDFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	file, err := s.store.SetFilePublic(r.Context(), fileID, userID, isPublic)
	if err != nil {
		s.log.Error(r.Context(), "failed to update visibility", "file_id", fileID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	respondJSON(w, http.StatusOK, toFileResponse(file))
}

// @Summary      Publish a file node
// @Tags         files
// @Produce      json
// @Success      200  {object}  FileResponse
// @Failure      404  {object}  map[string]string
// @Router       /files/{fileId}/publish [put]
func (s *Server) PublishHandler(w http.ResponseWriter, r *http.Request) {
	s.setVisibility(w, r, true)
}

// @Summary      Unpublish a file node
// @Tags         files
// @Produce      json
// @Success      200  {object}  FileResponse
// @Failure      404  {object}  map[string]string
// @Router       /files/{fileId}/unpublish [put]
func (s *Server) UnpublishHandler(w http.ResponseWriter, r *http.Request) {
	s.setVisibility(w, r, false)
}

// @Summary      Raw file content
// @Description  Streams the stored bytes of a readable file node. The access rule is the same one used for metadata.
// @Tags         files
// @Success      200  {string}  binary
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /files/{fileId}/data [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	fileID, ok := fileIDFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	file, err := s.store.GetFileByID(r.Context(), fileID)
	if err != nil {
		s.log.Error(r.Context(), "file lookup failed", "file_id", fileID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	if !file.CanRead(userID) {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if file.FileType == models.FileTypeFolder {
		respondError(w, http.StatusBadRequest, "A folder doesn't have content")
		return
	}
	if file.LocalPath == nil {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	data, err := s.storage.Read(*file.LocalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}
		s.log.Error(r.Context(), "failed to read content", "file_id", fileID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.Name))
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
