package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/isaackogan/YorkUChats/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	courseKeyPrefix = "course:"
	courseIndexKey  = "course_index" // Redis set of all course codes
	reportKeyPrefix = "report:"
	reportIndexKey  = "report_index" // Redis list of report IDs

	// Optimistic transactions retry until the watched course document stops
	// changing underneath them; the cap follows the go-redis Watch example.
	maxTxRetries = 1000
)

var (
	ErrCourseExists    = errors.New("course already exists")
	ErrCourseNotFound  = errors.New("course not found")
	ErrSectionExists   = errors.New("section already exists")
	ErrSectionNotFound = errors.New("section not found")
	ErrDuplicateURL    = errors.New("link URL already exists in section")
	ErrTxContention    = errors.New("too much contention on course document")
)

// Store maintains the course -> section -> link hierarchy in Redis. Each
// course is one JSON document; every mutation below is a single conditional
// operation on that document (SETNX for inserts, WATCH/MULTI for updates),
// so concurrent writers can never create duplicates or lose counter updates.
// No in-process locks are held.
type Store struct {
	redis *redis.Client
}

// New creates a hierarchy store backed by the given Redis client
func New(rdb *redis.Client) *Store {
	return &Store{redis: rdb}
}

func courseKey(code string) string {
	return courseKeyPrefix + code
}

// CreateCourse inserts a new course document. The insert is SETNX so two
// concurrent requests for the same code cannot both succeed: the loser
// observes ErrCourseExists without ever reading the document first.
func (s *Store) CreateCourse(ctx context.Context, course model.Course) (model.Course, error) {
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Sections == nil {
		course.Sections = []model.Section{}
	}

	payload, err := json.Marshal(course)
	if err != nil {
		return model.Course{}, err
	}

	ok, err := s.redis.SetNX(ctx, courseKey(course.Code), payload, 0).Result()
	if err != nil {
		return model.Course{}, err
	}
	if !ok {
		return model.Course{}, ErrCourseExists
	}

	if err := s.redis.SAdd(ctx, courseIndexKey, course.Code).Err(); err != nil {
		// The document is already stored; the listing index can lag
		log.Error().Err(err).Str("code", course.Code).Msg("Failed to add course to index")
	}

	return course, nil
}

// CreateSection appends a named section to a course. The existence check and
// the append run inside one WATCH transaction on the course document: if any
// concurrent writer touches the document between the read and the MULTI/EXEC,
// the transaction aborts and retries, so two requests with the same name can
// never both append.
func (s *Store) CreateSection(ctx context.Context, courseCode, name string) error {
	key := courseKey(courseCode)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrCourseNotFound
		} else if err != nil {
			return err
		}

		var course model.Course
		if err := json.Unmarshal(data, &course); err != nil {
			return err
		}

		if course.FindSection(name) != nil {
			return ErrSectionExists
		}

		course.Sections = append(course.Sections, model.Section{
			Name:  name,
			Links: []model.Link{},
		})
		course.UpdatedAt = time.Now()

		payload, err := json.Marshal(course)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	return s.runWatch(ctx, txf, key)
}

// CreateLink appends a link to a named section. Same conditional-append
// discipline as CreateSection, scoped to course exists, section exists and no
// link in that section shares the URL.
func (s *Store) CreateLink(ctx context.Context, courseCode, sectionName string, link model.Link) (model.Link, error) {
	key := courseKey(courseCode)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrCourseNotFound
		} else if err != nil {
			return err
		}

		var course model.Course
		if err := json.Unmarshal(data, &course); err != nil {
			return err
		}

		section := course.FindSection(sectionName)
		if section == nil {
			return ErrSectionNotFound
		}

		if section.FindLink(link.URL) != nil {
			return ErrDuplicateURL
		}

		now := time.Now()
		link.ID = uuid.New().String()
		link.Clicks = 0
		link.CreatedAt = now
		link.UpdatedAt = now
		section.Links = append(section.Links, link)
		course.UpdatedAt = now

		payload, err := json.Marshal(course)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	if err := s.runWatch(ctx, txf, key); err != nil {
		return model.Link{}, err
	}
	return link, nil
}

// IncrementLinkClicks atomically bumps the click counter of the link matching
// (courseCode, sectionName, url). A miss at any level is a silent no-op: no
// error, nothing created. Concurrent increments on the same link each land
// exactly once via the WATCH retry loop.
func (s *Store) IncrementLinkClicks(ctx context.Context, courseCode, sectionName, url string) error {
	key := courseKey(courseCode)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		} else if err != nil {
			return err
		}

		var course model.Course
		if err := json.Unmarshal(data, &course); err != nil {
			return err
		}

		section := course.FindSection(sectionName)
		if section == nil {
			return nil
		}

		link := section.FindLink(url)
		if link == nil {
			return nil
		}

		link.Clicks++
		link.UpdatedAt = time.Now()

		payload, err := json.Marshal(course)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	return s.runWatch(ctx, txf, key)
}

// runWatch executes txf under WATCH on key, retrying while the transaction
// aborts because another writer modified the document.
func (s *Store) runWatch(ctx context.Context, txf func(tx *redis.Tx) error, key string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return ErrTxContention
}

// GetCourse fetches one course document by code.
func (s *Store) GetCourse(ctx context.Context, code string) (model.Course, error) {
	data, err := s.redis.Get(ctx, courseKey(code)).Bytes()
	if err == redis.Nil {
		return model.Course{}, ErrCourseNotFound
	} else if err != nil {
		return model.Course{}, err
	}

	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return model.Course{}, err
	}
	return course, nil
}

// ListCourses returns all courses, optionally filtered by faculty, subject
// and a free-text query against the course name and code.
func (s *Store) ListCourses(ctx context.Context, faculty, subject, query string) ([]model.Course, error) {
	codes, err := s.redis.SMembers(ctx, courseIndexKey).Result()
	if err != nil {
		return nil, err
	}

	faculty = strings.ToUpper(strings.TrimSpace(faculty))
	subject = strings.ToUpper(strings.TrimSpace(subject))
	query = strings.ToLower(strings.TrimSpace(query))

	courses := make([]model.Course, 0, len(codes))
	for _, code := range codes {
		course, err := s.GetCourse(ctx, code)
		if err == ErrCourseNotFound {
			// Index can lag behind documents; skip
			continue
		} else if err != nil {
			return nil, err
		}

		if faculty != "" && strings.ToUpper(course.Faculty) != faculty {
			continue
		}
		if subject != "" && strings.ToUpper(course.Subject) != subject {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(course.Name), query) &&
			!strings.Contains(strings.ToLower(course.Code), query) {
			continue
		}

		courses = append(courses, course)
	}

	return courses, nil
}

// Stats aggregates totals across the whole directory.
type Stats struct {
	Courses  int   `json:"courses"`
	Sections int   `json:"sections"`
	Links    int   `json:"links"`
	Clicks   int64 `json:"clicks"`
}

// GlobalStats counts courses, sections, links and clicks across all courses.
func (s *Store) GlobalStats(ctx context.Context) (Stats, error) {
	courses, err := s.ListCourses(ctx, "", "", "")
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Courses: len(courses)}
	for _, course := range courses {
		stats.Sections += len(course.Sections)
		for _, section := range course.Sections {
			stats.Links += len(section.Links)
			for _, link := range section.Links {
				stats.Clicks += link.Clicks
			}
		}
	}
	return stats, nil
}

// LinkStats is the per-link click count for course stats responses.
type LinkStats struct {
	Section string `json:"section"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Clicks  int64  `json:"clicks"`
}

// CourseStats returns per-link click counts for one course.
func (s *Store) CourseStats(ctx context.Context, code string) ([]LinkStats, error) {
	course, err := s.GetCourse(ctx, code)
	if err != nil {
		return nil, err
	}

	stats := make([]LinkStats, 0)
	for _, section := range course.Sections {
		for _, link := range section.Links {
			stats = append(stats, LinkStats{
				Section: section.Name,
				URL:     link.URL,
				Type:    link.Type,
				Clicks:  link.Clicks,
			})
		}
	}
	return stats, nil
}

// SubmitReport stores a moderation report. Reports are independent top-level
// documents: no duplicate detection, no update, no delete.
func (s *Store) SubmitReport(ctx context.Context, report model.Report) (model.Report, error) {
	report.ID = uuid.New().String()
	report.CreatedAt = time.Now()

	payload, err := json.Marshal(report)
	if err != nil {
		return model.Report{}, err
	}

	if err := s.redis.Set(ctx, reportKeyPrefix+report.ID, payload, 0).Err(); err != nil {
		return model.Report{}, err
	}

	if err := s.redis.RPush(ctx, reportIndexKey, report.ID).Err(); err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("Failed to add report to index")
	}

	return report, nil
}
