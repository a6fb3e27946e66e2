package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	labeller "github.com/menta2k/dataset-labeller"
	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

type pathReq struct {
	Path string `json:"path"`
}

type openProjectReq struct {
	Path string `json:"path" binding:"required"`
	Mode string `json:"mode"`
}

type splitReq struct {
	Split string `json:"split"`
}

type saveReq struct {
	ImagePath string       `json:"image_path" binding:"required"`
	Split     string       `json:"split"`
	Rects     []types.Rect `json:"rects"`
}

type classesReq struct {
	Names []string `json:"names"`
}

type removeReq struct {
	ImagePath string `json:"image_path" binding:"required"`
	Split     string `json:"split"`
}

type restoreReq struct {
	Split    string `json:"split"`
	Filename string `json:"filename" binding:"required"`
}

type exportReq struct {
	OutputDir string `json:"output_dir" binding:"required"`
	Format    string `json:"fmt"`
}

// split defaults an omitted split to train
func split(s string) types.Split {
	if strings.TrimSpace(s) == "" {
		return types.Train
	}
	return types.Split(s)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func (s *Server) systemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dialogs_enabled": false, "version": labeller.Version})
}

// dialogDisabled answers the native dialog routes; the server is headless
func (s *Server) dialogDisabled(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		badRequest(c, kind+" dialog is disabled on this server")
	}
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.session.Models()})
}

func (s *Server) importModel(c *gin.Context) {
	var req pathReq
	if !bind(c, &req) {
		return
	}
	models, err := s.session.ImportModel(req.Path)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "models": models, "selected": utils.NormalizePath(req.Path)})
}

func (s *Server) openProject(c *gin.Context) {
	var req openProjectReq
	if !bind(c, &req) {
		return
	}
	info, err := s.session.Open(req.Path, req.Mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"root":        info.Root,
		"mode":        info.Mode,
		"layout":      info.Layout,
		"split":       info.Split,
		"splits":      info.Splits,
		"images":      info.Images,
		"count":       info.Count,
		"class_names": s.session.Classes(),
	})
}

func (s *Server) changeSplit(c *gin.Context) {
	var req splitReq
	if !bind(c, &req) {
		return
	}
	active, images, err := s.session.SelectSplit(string(split(req.Split)))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"split": active, "images": images})
}

func (s *Server) projectInfo(c *gin.Context) {
	info, err := s.session.Info()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"root":        info.Root,
		"mode":        info.Mode,
		"layout":      info.Layout,
		"split":       info.Split,
		"splits":      info.Splits,
		"count":       info.Count,
		"class_names": s.session.Classes(),
	})
}

func (s *Server) image(c *gin.Context) {
	p, err := s.session.ImageFile(c.Query("path"))
	if err != nil {
		fail(c, err)
		return
	}
	c.File(p)
}

func (s *Server) labels(c *gin.Context) {
	set, err := s.session.Labels(c.Query("image_path"), split(c.Query("split")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) saveLabels(c *gin.Context) {
	var req saveReq
	if !bind(c, &req) {
		return
	}
	if err := s.session.SaveLabels(req.ImagePath, split(req.Split), req.Rects); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) classes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"class_names": s.session.Classes()})
}

func (s *Server) setClasses(c *gin.Context) {
	var req classesReq
	if !bind(c, &req) {
		return
	}
	names, err := s.session.SetClasses(req.Names)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "class_names": names})
}

func (s *Server) remove(c *gin.Context) {
	var req removeReq
	if !bind(c, &req) {
		return
	}
	images, err := s.session.Remove(req.ImagePath, split(req.Split))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "images": images, "removed": filepath.Base(req.ImagePath)})
}

func (s *Server) restoreList(c *gin.Context) {
	files, err := s.session.ListRemoved(split(c.Query("split")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) restore(c *gin.Context) {
	var req restoreReq
	if !bind(c, &req) {
		return
	}
	images, err := s.session.Restore(split(req.Split), req.Filename)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "images": images, "restored": req.Filename})
}

func (s *Server) detect(c *gin.Context) {
	var req labeller.DetectRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.session.Detect(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) export(c *gin.Context) {
	var req exportReq
	if !bind(c, &req) {
		return
	}
	res, err := s.session.Export(c.Request.Context(), req.OutputDir, req.Format)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": res.Count, "output": res.OutputDir})
}
