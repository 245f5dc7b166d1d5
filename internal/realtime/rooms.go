package realtime

import "fmt"

// ProjectRoom is the room of everyone viewing a project's schedule
func ProjectRoom(projectID uint) string {
	return fmt.Sprintf("project-%d", projectID)
}

// CommentRoom is the room of everyone viewing one dated comment page
func CommentRoom(projectID uint, date string) string {
	return fmt.Sprintf("project-%d-%s", projectID, date)
}
