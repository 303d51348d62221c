package control

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nowsound-go/nowsound/internal/abi"
	"github.com/nowsound-go/nowsound/internal/buildinfo"
)

func (s *Server) getVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, buildinfo.Get())
}

func (s *Server) getGraphState(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int32{"state": int32(s.surface.GraphGetState())})
}

func (s *Server) postGraphInitialize(c echo.Context) error {
	if rc := s.surface.GraphInitialize(); rc != 0 {
		return echo.NewHTTPError(http.StatusConflict, "graph initialize failed")
	}
	return c.NoContent(http.StatusOK)
}

type createGraphRequest struct {
	InputDevice  string `json:"input_device"`
	OutputDevice string `json:"output_device"`
}

func (s *Server) postGraphCreate(c echo.Context) error {
	req := new(createGraphRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if rc := s.surface.GraphCreateAudioGraph(req.InputDevice, req.OutputDevice); rc != 0 {
		return echo.NewHTTPError(http.StatusConflict, "graph create failed")
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) postGraphStart(c echo.Context) error {
	if rc := s.surface.GraphStartAudioGraph(); rc != 0 {
		return echo.NewHTTPError(http.StatusConflict, "graph start failed")
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) getGraphTime(c echo.Context) error {
	timeInSamples, exactBeat, beatsPerMinute, beatInMeasure := s.surface.GraphTimeInfo()
	return c.JSON(http.StatusOK, map[string]any{
		"time_in_samples":  timeInSamples,
		"exact_beat":       exactBeat,
		"beats_per_minute": beatsPerMinute,
		"beat_in_measure":  beatInMeasure,
	})
}

type createTrackRequest struct {
	InputId    int32   `json:"input_id"`
	InitialPan float32 `json:"initial_pan"`
}

func (s *Server) postTrackCreate(c echo.Context) error {
	req := new(createTrackRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id := s.surface.TrackCreateRecordingTrack(req.InputId, req.InitialPan)
	if id == -1 {
		return echo.NewHTTPError(http.StatusConflict, "track create failed, graph is not running")
	}
	return c.JSON(http.StatusCreated, map[string]int32{"id": id})
}

func trackIdParam(c echo.Context) (abi.TrackId, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid track id")
	}
	return abi.TrackId(id), nil
}

func (s *Server) getTrackInfo(c echo.Context) error {
	id, err := trackIdParam(c)
	if err != nil {
		return err
	}
	durationInSamples, durationInBeats, exactDuration, currentTimeInSamples, currentBeat := s.surface.TrackGetInfo(id)
	return c.JSON(http.StatusOK, map[string]any{
		"state":                         int32(s.surface.TrackGetState(id)),
		"duration_in_samples":           durationInSamples,
		"duration_in_beats":             durationInBeats,
		"exact_duration":                exactDuration,
		"current_track_time_in_samples": currentTimeInSamples,
		"current_track_beat":            currentBeat,
		"is_muted":                      s.surface.TrackIsMuted(id),
		"pan":                           s.surface.TrackGetPan(id),
	})
}

func (s *Server) postTrackFinishRecording(c echo.Context) error {
	id, err := trackIdParam(c)
	if err != nil {
		return err
	}
	if rc := s.surface.TrackFinishRecording(id); rc != 0 {
		return echo.NewHTTPError(http.StatusNotFound, "track not found")
	}
	return c.NoContent(http.StatusOK)
}

type setMutedRequest struct {
	Muted bool `json:"muted"`
}

func (s *Server) putTrackMuted(c echo.Context) error {
	id, err := trackIdParam(c)
	if err != nil {
		return err
	}
	req := new(setMutedRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if rc := s.surface.TrackSetIsMuted(id, req.Muted); rc != 0 {
		return echo.NewHTTPError(http.StatusNotFound, "track not found")
	}
	return c.NoContent(http.StatusOK)
}

type setPanRequest struct {
	Pan float32 `json:"pan"`
}

func (s *Server) putTrackPan(c echo.Context) error {
	id, err := trackIdParam(c)
	if err != nil {
		return err
	}
	req := new(setPanRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if rc := s.surface.TrackSetPan(id, req.Pan); rc != 0 {
		return echo.NewHTTPError(http.StatusNotFound, "track not found")
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) deleteTrack(c echo.Context) error {
	id, err := trackIdParam(c)
	if err != nil {
		return err
	}
	if rc := s.surface.TrackDelete(id); rc != 0 {
		return echo.NewHTTPError(http.StatusNotFound, "track not found")
	}
	return c.NoContent(http.StatusOK)
}
