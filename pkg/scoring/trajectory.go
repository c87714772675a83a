package scoring

import "github.com/hirehound/search/pkg/models"

// Trajectory classifications.
const (
	DirectionUpward   = "upward"
	DirectionLateral  = "lateral"
	DirectionDownward = "downward"

	VelocityFast   = "fast"
	VelocityNormal = "normal"
	VelocitySlow   = "slow"

	TypeTechnicalGrowth = "technical_growth"
	TypeLeadershipTrack = "leadership_track"
	TypeLateralMove     = "lateral_move"
	TypeCareerPivot     = "career_pivot"
)

// Trajectory is the classified career path of a candidate, derived
// from the title sequence alone.
type Trajectory struct {
	Direction string `json:"direction"`
	Velocity  string `json:"velocity"`
	Type      string `json:"type"`
}

// TitlesOldestFirst extracts the title sequence from experiences in
// chronological order. Experiences are stored most-recent-first.
func TitlesOldestFirst(experiences []models.Experience) []string {
	titles := make([]string, 0, len(experiences))
	for i := len(experiences) - 1; i >= 0; i-- {
		if experiences[i].Title != "" {
			titles = append(titles, experiences[i].Title)
		}
	}
	return titles
}

// ClassifyTrajectory classifies a chronological title sequence.
// Returns ok=false when fewer than two titles normalize to a known
// level; callers fall back to neutral in that case.
func ClassifyTrajectory(titles []string) (Trajectory, bool) {
	var levels []int
	for _, t := range titles {
		if lvl := NormalizeTitleLevel(t); lvl != UnknownLevel {
			levels = append(levels, lvl)
		}
	}
	if len(levels) < 2 {
		return Trajectory{}, false
	}

	first, last := levels[0], levels[len(levels)-1]
	net := stageOf(last) - stageOf(first)

	traj := Trajectory{}
	switch {
	case net > 0:
		traj.Direction = DirectionUpward
	case net < 0:
		traj.Direction = DirectionDownward
	default:
		traj.Direction = DirectionLateral
	}

	// Velocity from stages gained per transition; durations are not
	// reliable enough across profiles to use here.
	perStep := float64(net) / float64(len(levels)-1)
	switch {
	case perStep >= 1:
		traj.Velocity = VelocityFast
	case perStep > 0:
		traj.Velocity = VelocityNormal
	default:
		traj.Velocity = VelocitySlow
	}

	firstTrack, lastTrack := TrackOf(first), TrackOf(last)
	switch {
	case firstTrack == TrackTechnical && lastTrack == TrackManagement:
		traj.Type = TypeLeadershipTrack
	case firstTrack == TrackManagement && lastTrack == TrackTechnical:
		traj.Type = TypeCareerPivot
	case net > 0 && lastTrack == TrackManagement:
		traj.Type = TypeLeadershipTrack
	case net > 0:
		traj.Type = TypeTechnicalGrowth
	case net < 0:
		traj.Type = TypeCareerPivot
	default:
		traj.Type = TypeLateralMove
	}
	return traj, true
}

// TrajectoryFit scores how well the candidate's career path fits the
// search context. Insufficient or unrecognizable titles score neutral.
func (c *Calculator) TrajectoryFit(titles []string, ctx *models.SearchContext) float64 {
	traj, ok := ClassifyTrajectory(titles)
	if !ok {
		return neutralScore
	}
	if ctx == nil {
		ctx = &models.SearchContext{}
	}
	return trajectoryFitScore(traj, ctx)
}

func trajectoryFitScore(traj Trajectory, ctx *models.SearchContext) float64 {
	var base float64
	switch traj.Type {
	case TypeTechnicalGrowth:
		switch ctx.TargetTrack {
		case TrackTechnical:
			base = 1.0
		case TrackManagement:
			base = 0.7
		default:
			base = 0.9
		}
	case TypeLeadershipTrack:
		switch ctx.TargetTrack {
		case TrackManagement:
			base = 1.0
		case TrackTechnical:
			base = 0.6
		default:
			base = 0.9
		}
	case TypeLateralMove:
		base = 0.5
	case TypeCareerPivot:
		if ctx.AllowPivots {
			base = 0.6
		} else {
			base = 0.3
		}
	}

	switch ctx.RoleGrowthType {
	case "growth":
		if traj.Velocity == VelocityFast {
			base += 0.1
		} else if traj.Velocity == VelocitySlow {
			base -= 0.1
		}
	case "stable":
		if traj.Velocity == VelocityFast {
			base -= 0.05
		} else if traj.Velocity == VelocitySlow {
			base += 0.05
		}
	}
	return clamp01(base)
}
