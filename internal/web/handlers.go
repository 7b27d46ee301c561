package web

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrlab/internal/analysis"
	"github.com/KaramelBytes/corrlab/internal/chart"
	"github.com/KaramelBytes/corrlab/internal/i18n"
	"github.com/KaramelBytes/corrlab/internal/photo"
)

const (
	sessionKey = "session_id"
	langCookie = "corrlab_lang"
)

var (
	errNoDataset = errors.New("no dataset uploaded")
	errNoImage   = errors.New("no image uploaded")
)

// withSession attaches (or issues) the session cookie.
func (s *Server) withSession(c *gin.Context) {
	id, _ := c.Cookie(sessionCookie)
	sess, fresh := s.store.Get(id)
	if fresh {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sess.ID, 0, "/", "", false, true)
	}
	c.Set(sessionKey, sess.ID)
	c.Next()
}

func sessionID(c *gin.Context) string { return c.GetString(sessionKey) }

// labels picks the language from ?lang=, then the cookie, then the default.
// Unsupported codes fall back to the default rather than erroring.
func (s *Server) labels(c *gin.Context, explicit string) i18n.Labels {
	code := explicit
	if code == "" {
		code = c.Query("lang")
	}
	if code == "" {
		code, _ = c.Cookie(langCookie)
	}
	if !s.cat.Supports(code) {
		code = s.opt.DefaultLang
	}
	l, _ := s.cat.Lang(code)
	return l
}

type indexView struct {
	Lang      string
	Languages []string
	L         map[string]string
	Methods   []methodOption
	Photo     photoRanges
}

type methodOption struct {
	ID    string
	Label string
}

type photoRanges struct {
	MinRotate, MaxRotate float64
	MinFactor, MaxFactor float64
}

func (s *Server) handleIndex(c *gin.Context) {
	l := s.labels(c, "")
	if q := c.Query("lang"); q != "" && s.cat.Supports(q) {
		c.SetCookie(langCookie, q, 365*24*3600, "/", "", false, false)
	}
	view := indexView{
		Lang:      l.Lang(),
		Languages: s.cat.Languages(),
		L:         l.Map(),
		Photo: photoRanges{
			MinRotate: photo.MinRotate, MaxRotate: photo.MaxRotate,
			MinFactor: photo.MinFactor, MaxFactor: photo.MaxFactor,
		},
	}
	for _, m := range analysis.Methods() {
		view.Methods = append(view.Methods, methodOption{ID: m.ID(), Label: l.T(m.ID())})
	}
	c.HTML(http.StatusOK, "index.html", view)
}

type datasetResponse struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Numeric []string `json:"numeric"`
}

func (s *Server) handleDataset(c *gin.Context) {
	l := s.labels(c, "")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opt.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%s: %w", l.T("upload_dataset"), err), l)
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, l)
		return
	}
	defer f.Close()
	ds, err := analysis.Load(fh.Filename, f, s.opt.Load)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	numeric, err := ds.RequireNumeric()
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	s.store.Update(sessionID(c), func(sess *Session) { sess.Dataset = ds })
	s.log.Info("dataset loaded",
		zap.String("session", sessionID(c)),
		zap.String("name", ds.Name),
		zap.Int("rows", ds.Rows),
		zap.Strings("numeric", numeric))
	c.JSON(http.StatusOK, datasetResponse{Name: ds.Name, Rows: ds.Rows, Numeric: numeric})
}

type correlateRequest struct {
	X      string `json:"x" binding:"required"`
	Y      string `json:"y" binding:"required"`
	Method string `json:"method" binding:"required"`
	Lang   string `json:"lang"`
}

type correlateResponse struct {
	analysis.Summary
	R         float64 `json:"r"`
	P         float64 `json:"p"`
	N         int     `json:"n"`
	Method    string  `json:"method"`
	Direction string  `json:"direction"`
	Strength  string  `json:"strength"`
}

func (s *Server) handleCorrelate(c *gin.Context) {
	var req correlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err, s.labels(c, ""))
		return
	}
	l := s.labels(c, req.Lang)
	m, err := analysis.ParseMethod(req.Method)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, l)
		return
	}
	ds, err := s.dataset(c)
	if err != nil {
		s.fail(c, http.StatusConflict, err, l)
		return
	}
	xs, ys, err := ds.SelectPair(req.X, req.Y)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	res, err := analysis.Correlate(xs, ys, m)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	c.JSON(http.StatusOK, correlateResponse{
		Summary:   res.Summarize(l),
		R:         res.R,
		P:         res.P,
		N:         res.N,
		Method:    res.Method.ID(),
		Direction: string(res.Direction),
		Strength:  string(res.Strength),
	})
}

func (s *Server) handleChart(c *gin.Context) {
	l := s.labels(c, "")
	ds, err := s.dataset(c)
	if err != nil {
		s.fail(c, http.StatusConflict, err, l)
		return
	}
	x, y := c.Query("x"), c.Query("y")
	xs, ys, err := ds.SelectPair(x, y)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	opt := s.opt.Chart
	opt.Title, opt.XLabel, opt.YLabel = l.T("scatter_title"), x, y
	png, err := chart.Scatter(xs, ys, opt)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

type photoResponse struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handlePhoto(c *gin.Context) {
	l := s.labels(c, "")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opt.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%s: %w", l.T("upload_photo"), err), l)
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, l)
		return
	}
	defer f.Close()
	img, err := photo.Decode(fh.Filename, f)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err, l)
		return
	}
	s.store.Update(sessionID(c), func(sess *Session) {
		sess.Image = img
		sess.ImageName = fh.Filename
	})
	b := img.Bounds()
	c.JSON(http.StatusOK, photoResponse{Name: fh.Filename, Width: b.Dx(), Height: b.Dy()})
}

func (s *Server) handleOriginal(c *gin.Context) {
	sess, ok := s.store.Snapshot(sessionID(c))
	if !ok || sess.Image == nil {
		s.fail(c, http.StatusConflict, errNoImage, s.labels(c, ""))
		return
	}
	s.writePNG(c, sess.Image)
}

func (s *Server) handleProcessed(c *gin.Context) {
	sess, ok := s.store.Snapshot(sessionID(c))
	if !ok || sess.Image == nil {
		s.fail(c, http.StatusConflict, errNoImage, s.labels(c, ""))
		return
	}
	p := photo.Params{
		Rotate:     queryFloat(c, "rotate", 0),
		Brightness: queryFloat(c, "brightness", 1),
		Contrast:   queryFloat(c, "contrast", 1),
	}.Clamp()
	out, err := photo.Process(sess.Image, p)
	if err != nil {
		// Clamped params cannot be out of range.
		s.fail(c, http.StatusInternalServerError, err, s.labels(c, ""))
		return
	}
	s.writePNG(c, out)
}

func (s *Server) writePNG(c *gin.Context, img image.Image) {
	var buf bytes.Buffer
	if err := photo.Encode(&buf, img, photo.PNG); err != nil {
		s.fail(c, http.StatusInternalServerError, err, s.labels(c, ""))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) dataset(c *gin.Context) (*analysis.Dataset, error) {
	sess, ok := s.store.Snapshot(sessionID(c))
	if !ok || sess.Dataset == nil {
		return nil, errNoDataset
	}
	return sess.Dataset, nil
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return def
	}
	return v
}

// fail writes {"error": message}. Known user errors get a localized message.
func (s *Server) fail(c *gin.Context, status int, err error, l i18n.Labels) {
	_ = c.Error(err)
	msg := err.Error()
	var pe *photo.ParameterError
	switch {
	case errors.Is(err, analysis.ErrTooFewNumeric):
		msg = l.T("need_numeric")
	case errors.Is(err, analysis.ErrConstantColumn):
		msg = l.T("constant_column")
	case errors.Is(err, errNoDataset):
		msg = l.T("no_file")
	case errors.As(err, &pe):
		s.log.Error("parameter reached processing unclamped", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
