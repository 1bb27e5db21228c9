package db

import (
	"fmt"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Game{},
		&models.Player{},
		&models.Action{},
		&models.Question{},
		&models.Suggestion{},
		&models.ForcedQuestion{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// seedQuestions is the starter question bank, inserted once when the
// questions table is empty.
var seedQuestions = []models.Question{
	{Category: models.CategoryTruth, Level: models.LevelNormal, Text: "When did you last tell a lie, and why?", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelNormal, Text: "If you had to share one secret right now, what would it be?", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelNormal, Text: "Who in this group are you most careful around?", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelNormal, Text: "What was the last thing you searched for online?", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelNormal, Text: "What is the most embarrassing thing you have done in front of other people?", Enabled: true},
	{Category: models.CategoryDare, Level: models.LevelNormal, Text: "Send a five-second voice message saying: \"I'm in the game right now!\"", Enabled: true},
	{Category: models.CategoryDare, Level: models.LevelNormal, Text: "Play a TV presenter for thirty seconds.", Enabled: true},
	{Category: models.CategoryDare, Level: models.LevelNormal, Text: "Give someone here a very specific, very strange compliment.", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelMature, Text: "Have you ever deliberately attracted someone and then backed off?", Enabled: true},
	{Category: models.CategoryTruth, Level: models.LevelMature, Text: "Are you drawn more to behavior or to looks? Why?", Enabled: true},
	{Category: models.CategoryDare, Level: models.LevelMature, Text: "Name three things you consider vital in a relationship.", Enabled: true},
	{Category: models.CategoryDare, Level: models.LevelMature, Text: "Say something ambiguous but polite.", Enabled: true},
}

// SeedQuestionsIfEmpty inserts the starter question bank when no questions
// exist yet. Returns the number of rows inserted.
func SeedQuestionsIfEmpty(gdb *gorm.DB) (int, error) {
	var count int64
	if err := gdb.Model(&models.Question{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("db: count questions: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	rows := make([]models.Question, len(seedQuestions))
	copy(rows, seedQuestions)
	if err := gdb.Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("db: seed questions: %w", err)
	}
	return len(rows), nil
}
