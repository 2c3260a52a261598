package web

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-posegame/pkg/store"
)

// TimeFormat is the display format of result timestamps.
const TimeFormat = "2006-01-02 15:04"

func (s *Server) handleListPoses(c *fiber.Ctx) error {
	names, err := s.repo.ListPoses()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"poses": names})
}

func (s *Server) handleGetPose(c *fiber.Ctx) error {
	rec, found, err := s.repo.LoadPose(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	if !found {
		return s.fail(c, fiber.NewError(fiber.StatusNotFound, "pose not found"))
	}
	return c.JSON(rec)
}

func (s *Server) handlePutPose(c *fiber.Ctx) error {
	var rec store.PoseRecord
	if err := c.BodyParser(&rec); err != nil {
		return s.fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid pose record"))
	}
	if err := s.repo.SavePose(c.Params("name"), rec); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeletePose(c *fiber.Ctx) error {
	existed, err := s.repo.DeletePose(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	if !existed {
		return s.fail(c, fiber.NewError(fiber.StatusNotFound, "pose not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListRoutines(c *fiber.Ctx) error {
	names, err := s.repo.ListRoutines()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"routines": names})
}

func (s *Server) handleGetRoutine(c *fiber.Ctx) error {
	r, found, err := s.repo.LoadRoutine(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	if !found {
		return s.fail(c, fiber.NewError(fiber.StatusNotFound, "routine not found"))
	}
	return c.JSON(r)
}

// handlePutRoutine saves a routine. The path name wins over the body's.
func (s *Server) handlePutRoutine(c *fiber.Ctx) error {
	var r store.Routine
	if err := c.BodyParser(&r); err != nil {
		return s.fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid routine"))
	}
	r.RoutineName = c.Params("name")
	if err := s.repo.SaveRoutine(r); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteRoutine(c *fiber.Ctx) error {
	existed, err := s.repo.DeleteRoutine(c.Params("name"))
	if err != nil {
		return s.fail(c, err)
	}
	if !existed {
		return s.fail(c, fiber.NewError(fiber.StatusNotFound, "routine not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResultView is a result with its display time.
type ResultView struct {
	store.Result
	Time string `json:"time"`
}

// handleListResults returns a routine's results, newest first.
func (s *Server) handleListResults(c *fiber.Ctx) error {
	results, err := s.repo.LoadResults(c.Params("routine"))
	if err != nil {
		return s.fail(c, err)
	}
	views := make([]ResultView, len(results))
	for i, r := range results {
		views[i] = ResultView{Result: r, Time: r.Time().Format(TimeFormat)}
	}
	return c.JSON(fiber.Map{"results": views})
}

func (s *Server) handleGetResult(c *fiber.Ctx) error {
	ts, err := strconv.ParseInt(c.Params("ts"), 10, 64)
	if err != nil {
		return s.fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid timestamp"))
	}
	r, found, err := s.repo.LoadResult(c.Params("routine"), ts)
	if err != nil {
		return s.fail(c, err)
	}
	if !found {
		return s.fail(c, fiber.NewError(fiber.StatusNotFound, "result not found"))
	}
	return c.JSON(ResultView{Result: *r, Time: r.Time().Format(TimeFormat)})
}

// Summary aggregates the results of one routine.
type Summary struct {
	Routine       string  `json:"routine"`
	Sessions      int     `json:"sessions"`
	BestScore     float64 `json:"bestScore"`
	MeanScore     float64 `json:"meanScore"`
	StdDevScore   float64 `json:"stdDevScore"`
	LastScore     float64 `json:"lastScore"`
	MaxMultiplier float64 `json:"maxMultiplier"`
}

// Summarize computes score statistics. results are newest first.
func Summarize(routineName string, results []store.Result) Summary {
	sum := Summary{Routine: store.CleanName(routineName), Sessions: len(results)}
	if len(results) == 0 {
		return sum
	}

	scores := make([]float64, len(results))
	mults := make([]float64, len(results))
	for i, r := range results {
		scores[i] = float64(r.TotalScore)
		mults[i] = float64(r.MaxMultiplier)
	}

	sum.BestScore = floats.Max(scores)
	sum.MeanScore, sum.StdDevScore = stat.MeanStdDev(scores, nil)
	sum.LastScore = scores[0]
	sum.MaxMultiplier = floats.Max(mults)
	if len(scores) == 1 {
		sum.StdDevScore = 0
	}
	return sum
}

func (s *Server) handleResultSummary(c *fiber.Ctx) error {
	results, err := s.repo.LoadResults(c.Params("routine"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(Summarize(c.Params("routine"), results))
}
