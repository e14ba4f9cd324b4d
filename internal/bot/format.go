package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/horshkov/food-tracker-bot/internal/models"
)

// fnum renders a nutrition number without trailing zeros (250, 12.5).
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// favg renders an average with one decimal place.
func favg(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func welcomeMessage(firstName string) string {
	return fmt.Sprintf(
		"👋 Hi %s!\n\n"+
			"I'm your Food Tracker Bot. I can help you analyze your food and track your nutrition.\n\n"+
			"Here's what I can do:\n"+
			"📸 Send me a photo of your food for analysis\n"+
			"📝 Type a description of your food\n"+
			"📊 Use /stats to see your nutrition statistics\n"+
			"📜 Use /history to see your recent food entries\n"+
			"❓ Use /help for more information",
		firstName,
	)
}

const helpMessage = "🤖 Food Tracker Bot Help\n\n" +
	"Commands:\n" +
	"/start - Start the bot\n" +
	"/help - Show this help message\n" +
	"/stats - Show your nutrition statistics\n" +
	"/history - Show your recent food entries\n" +
	"/delete - Delete a food entry\n\n" +
	"Features:\n" +
	"• Send photos of food for analysis\n" +
	"• Type food descriptions for analysis\n" +
	"• Track your nutrition history\n" +
	"• View your nutrition statistics"

const zeroStateMessage = "You haven't tracked any food yet. Send me a photo or description to get started!"

func formatStats(stats *models.Stats) string {
	return fmt.Sprintf(
		"📊 Your Nutrition Statistics\n\n"+
			"Total Entries: %d\n\n"+
			"📈 Totals:\n"+
			"Calories: %s kcal\n"+
			"Protein: %sg\n"+
			"Carbs: %sg\n"+
			"Fats: %sg\n\n"+
			"📊 Averages (per entry):\n"+
			"Calories: %s kcal\n"+
			"Protein: %sg\n"+
			"Carbs: %sg\n"+
			"Fats: %sg",
		stats.TotalEntries,
		fnum(stats.TotalCalories),
		fnum(stats.TotalProtein),
		fnum(stats.TotalCarbs),
		fnum(stats.TotalFats),
		favg(stats.AvgCalories),
		favg(stats.AvgProtein),
		favg(stats.AvgCarbs),
		favg(stats.AvgFats),
	)
}

func formatEntry(entry *models.FoodEntry) string {
	return fmt.Sprintf(
		"ID: %d\n"+
			"🍽 %s\n"+
			"Calories: %s kcal\n"+
			"Protein: %sg | Carbs: %sg | Fats: %sg\n"+
			"Date: %s",
		entry.ID,
		entry.Description,
		fnum(entry.Calories),
		fnum(entry.Protein),
		fnum(entry.Carbs),
		fnum(entry.Fats),
		entry.CreatedAt.Format("2006-01-02 15:04"),
	)
}

func formatHistory(entries []models.FoodEntry) string {
	var b strings.Builder
	b.WriteString("📜 Your Recent Food History\n\n")
	for i := range entries {
		b.WriteString(formatEntry(&entries[i]))
		b.WriteString("\n\n")
	}
	b.WriteString("\nTo delete an entry, use /delete <ID>")
	return b.String()
}

// formatAnalysis renders the reply for a freshly analyzed food item.
func formatAnalysis(title string, rec *models.NutritionRecord) string {
	return fmt.Sprintf(
		"🍽 %s\n\n"+
			"📊 Nutrition Facts:\n"+
			"Calories: %s kcal\n"+
			"Protein: %sg\n"+
			"Carbs: %sg\n"+
			"Fats: %sg\n\n"+
			"💡 Analysis:\n%s",
		title,
		fnum(rec.Calories),
		fnum(rec.Protein),
		fnum(rec.Carbs),
		fnum(rec.Fats),
		rec.Analysis,
	)
}
