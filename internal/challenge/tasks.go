package challenge

// ChallengeDays is the length of the challenge.
const ChallengeDays = 30

// Task is one of the daily wellbeing tasks.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

var dailyTasks = []Task{
	{ID: "1", Title: "30 minutes of workout"},
	{ID: "2", Title: "1 hour of learning something new"},
	{ID: "3", Title: "Write one thing you are grateful for"},
	{ID: "4", Title: "Take a short walk outside"},
	{ID: "5", Title: "Listen to calming music"},
	{ID: "6", Title: "Say something kind to yourself"},
}

// DailyTasks returns the task set that makes up every challenge day.
func DailyTasks() []Task {
	tasks := make([]Task, len(dailyTasks))
	copy(tasks, dailyTasks)
	return tasks
}

func knownTask(taskID string) bool {
	for _, task := range dailyTasks {
		if task.ID == taskID {
			return true
		}
	}
	return false
}
