package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitleLevel(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"Senior Software Engineer", LevelSenior},
		{"Sr. Backend Engineer", LevelSenior},
		{"Staff Engineer", LevelStaff},
		{"Senior Staff Engineer", LevelStaff},
		{"Principal Engineer", LevelPrincipal},
		{"Distinguished Engineer", LevelDistinguished},
		{"Tech Lead", LevelLead},
		{"Engineering Manager", LevelManager},
		{"Senior Engineering Manager", LevelSeniorManager},
		{"Director of Engineering", LevelDirector},
		{"Head of Data", LevelDirector},
		{"VP of Engineering", LevelVP},
		{"Senior Vice President, Product", LevelSVP},
		{"CTO", LevelCLevel},
		{"Co-Founder & CEO", LevelCLevel},
		{"Software Engineer", LevelMid},
		{"Junior Developer", LevelJunior},
		{"QA Intern", LevelIntern},
		{"Desenvolvedor Pleno", LevelMid},
		{"Desenvolvedora Sênior", LevelSenior},
		{"Gerente de Engenharia", LevelManager},
		{"Diretor de Tecnologia", LevelDirector},
		{"Estagiário de TI", LevelIntern},
		{"Growth Hacker", UnknownLevel},
		{"", UnknownLevel},
	}
	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTitleLevel(tc.title))
		})
	}
}

func TestSeniorityLevel(t *testing.T) {
	assert.Equal(t, LevelSenior, SeniorityLevel("senior"))
	assert.Equal(t, LevelSenior, SeniorityLevel("sr"))
	assert.Equal(t, LevelMid, SeniorityLevel("pleno"))
	assert.Equal(t, LevelManager, SeniorityLevel("gerente"))
	assert.Equal(t, LevelLead, SeniorityLevel("tech lead"))
	assert.Equal(t, LevelCLevel, SeniorityLevel("cto"))
	assert.Equal(t, UnknownLevel, SeniorityLevel("wizard"))
	assert.Equal(t, UnknownLevel, SeniorityLevel(""))
}

func TestTrackAndStage(t *testing.T) {
	assert.Equal(t, TrackTechnical, TrackOf(LevelSenior))
	assert.Equal(t, TrackTechnical, TrackOf(LevelDistinguished))
	assert.Equal(t, TrackManagement, TrackOf(LevelLead))
	assert.Equal(t, TrackManagement, TrackOf(LevelCLevel))

	// Track changes compare on the shared stage scale: lead aligns
	// with senior, manager with staff.
	assert.Equal(t, stageOf(LevelSenior), stageOf(LevelLead))
	assert.Equal(t, stageOf(LevelStaff), stageOf(LevelManager))
	assert.Greater(t, stageOf(LevelDirector), stageOf(LevelPrincipal))
}
