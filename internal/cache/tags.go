package cache

// Tag names a cache partition. Every cached entry carries one or more tags
// and invalidating a tag drops all entries that carry it.
type Tag string

const (
	SubmissionList Tag = "submissions:list"
	Statistics     Tag = "statistics"
	PostsList      Tag = "posts:list"
)

func SubmissionTag(id string) Tag {
	return Tag("submission:" + id)
}

func FormStatusTag(userID string) Tag {
	return Tag("form-status:" + userID)
}

func PostTag(id string) Tag {
	return Tag("post:" + id)
}

// Strings converts tags for headers and logs.
func Strings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = string(tag)
	}
	return out
}

// StatisticsKey is the entry holding the public statistics document.
const StatisticsKey = "statistics"
