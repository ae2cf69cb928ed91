// Package reward holds progress arithmetic and the reward shop.
package reward

import (
	"slices"

	"github.com/codequest-app/codequest/internal/domain"
)

// PercentComplete returns floor(done*100/total), clamped to [0,100].
// A non-positive total is 0%.
func PercentComplete(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}

// CourseProgress returns how far a user is through course given the ids
// of the tasks they have completed. Completed ids outside the course are
// ignored.
func CourseProgress(course domain.Course, completed []string) int {
	done := 0
	for _, t := range course.Tasks {
		if slices.Contains(completed, t.ID) {
			done++
		}
	}
	return PercentComplete(done, len(course.Tasks))
}

// CanPurchase reports whether the reward is still locked and points cover
// its cost. An unlocked reward can never be bought again.
func CanPurchase(r domain.Reward, points int64) bool {
	return !r.Unlocked && points >= r.Cost
}

// Annotate returns a copy of rewards with Unlocked set from unlockedIDs.
func Annotate(rewards []domain.Reward, unlockedIDs []string) []domain.Reward {
	out := make([]domain.Reward, len(rewards))
	for i, r := range rewards {
		r.Unlocked = slices.Contains(unlockedIDs, r.ID)
		out[i] = r
	}
	return out
}
