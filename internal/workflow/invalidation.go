package workflow

import "komunitas/pendataan/internal/cache"

type Mutation string

const (
	SubmissionCreated      Mutation = "submission.created"
	SubmissionUpdated      Mutation = "submission.updated"
	SubmissionDeleted      Mutation = "submission.deleted"
	SubmissionTransitioned Mutation = "submission.transitioned"
	SubmissionLinked       Mutation = "submission.linked"
	PostCreated            Mutation = "post.created"
	PostUpdated            Mutation = "post.updated"
	PostPublishToggled     Mutation = "post.publish_toggled"
	PostDeleted            Mutation = "post.deleted"
)

// Change describes a committed mutation. OwnerID is the submission owner,
// empty for unlinked records. Verified marks edits to an already verified
// record, which count toward the statistics.
type Change struct {
	Mutation     Mutation
	SubmissionID string
	OwnerID      string
	PostID       string
	Verified     bool
}

// Invalidations lists the partitions a change makes stale, without
// duplicates and in a stable order.
func Invalidations(c Change) []cache.Tag {
	var tags []cache.Tag
	switch c.Mutation {
	case SubmissionCreated:
		tags = append(tags, cache.SubmissionList, cache.Statistics)
		if c.OwnerID != "" {
			tags = append(tags, cache.FormStatusTag(c.OwnerID))
		}
	case SubmissionUpdated, SubmissionDeleted, SubmissionTransitioned, SubmissionLinked:
		tags = append(tags, cache.SubmissionTag(c.SubmissionID), cache.SubmissionList)
		if c.OwnerID != "" {
			tags = append(tags, cache.FormStatusTag(c.OwnerID))
		}
		if c.Mutation != SubmissionUpdated || c.Verified {
			tags = append(tags, cache.Statistics)
		}
	case PostCreated:
		tags = append(tags, cache.PostsList)
	case PostUpdated, PostPublishToggled, PostDeleted:
		tags = append(tags, cache.PostsList, cache.PostTag(c.PostID))
	}
	return dedupe(tags)
}

func dedupe(tags []cache.Tag) []cache.Tag {
	seen := make(map[cache.Tag]bool, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
