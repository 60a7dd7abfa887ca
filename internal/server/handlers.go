package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model_ready": s.engine.Ready()})
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Info())
}

// readUpload returns the bytes of the multipart "file" field.
func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	const op = "upload"
	limit := s.engine.Config().Server.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.NewInvalidInputErrorf(op, "upload exceeds %d bytes", limit)
		}
		return nil, errors.NewInvalidInputErrorf(op, "missing file field: %v", err)
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return nil, errors.NewInvalidInputErrorf(op, "%q is not a .csv file", fh.Filename)
	}
	if fh.Size > limit {
		return nil, errors.NewInvalidInputErrorf(op, "upload exceeds %d bytes", limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	return data, nil
}

func (s *Server) train(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	target := c.PostForm("target_column")
	if target == "" {
		s.fail(c, errors.NewInvalidInputError("train", "target_column is required"))
		return
	}
	id, cached, err := s.engine.TrainCSV(c.Request.Context(), data, target)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "Model trained successfully",
		"model_id":      id,
		"target_column": target,
		"cached":        cached,
	})
}

func (s *Server) predict(c *gin.Context) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		s.fail(c, errors.NewInvalidInputErrorf("predict", "invalid JSON record: %v", err))
		return
	}
	pred, err := s.engine.ClassifySingle(record)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

func (s *Server) test(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ev, cached, err := s.engine.TestCSV(c.Request.Context(), data, c.PostForm("target_column"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accuracy":         ev.Accuracy,
		"confusion_matrix": ev.ConfusionMatrix,
		"test_samples":     ev.TestSamples,
		"cached":           cached,
	})
}

func (s *Server) validate(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	target := c.PostForm("target_column")
	if target == "" {
		s.fail(c, errors.NewInvalidInputError("validate", "target_column is required"))
		return
	}
	defaults := s.engine.Config().Validation
	fraction := defaults.TestFraction
	if v := c.PostForm("test_fraction"); v != "" {
		if fraction, err = strconv.ParseFloat(v, 64); err != nil {
			s.fail(c, errors.NewInvalidInputErrorf("validate", "test_fraction %q is not a number", v))
			return
		}
	}
	seed := defaults.Seed
	if v := c.PostForm("seed"); v != "" {
		if seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			s.fail(c, errors.NewInvalidInputErrorf("validate", "seed %q is not an unsigned integer", v))
			return
		}
	}

	frame, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		s.fail(c, err)
		return
	}
	ev, err := s.engine.ValidateWithSplit(frame, target, fraction, seed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accuracy":         ev.Accuracy,
		"confusion_matrix": ev.ConfusionMatrix,
		"train_samples":    ev.TrainSamples,
		"test_samples":     ev.TestSamples,
		"report":           ev.Report(),
	})
}
