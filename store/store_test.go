package store

import (
	"context"
	"sync"
	"testing"

	"github.com/isaackogan/YorkUChats/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client), s
}

func testCourse(code string) model.Course {
	return model.Course{
		Code:    code,
		Name:    "Introduction to Computer Science",
		Faculty: "LE",
		Subject: "EECS",
		Number:  "1011",
		Credits: "3.00",
	}
}

func TestCreateCourse_Conflict(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("First CreateCourse failed: %v", err)
	}

	_, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00"))
	if err != ErrCourseExists {
		t.Errorf("Expected ErrCourseExists, got %v", err)
	}
}

func TestCreateSection(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if err := st.CreateSection(ctx, "MISSING", "Lecture Notes"); err != ErrCourseNotFound {
		t.Errorf("Expected ErrCourseNotFound for missing course, got %v", err)
	}

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}

	if err := st.CreateSection(ctx, "LEEECS10113.00", "Lecture Notes"); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}

	if err := st.CreateSection(ctx, "LEEECS10113.00", "Lecture Notes"); err != ErrSectionExists {
		t.Errorf("Expected ErrSectionExists for duplicate, got %v", err)
	}

	// Names are case-sensitive, different casing is a different section
	if err := st.CreateSection(ctx, "LEEECS10113.00", "lecture notes"); err != nil {
		t.Errorf("Case-variant section name should be allowed, got %v", err)
	}
}

func TestCreateSection_ConcurrentDuplicates(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- st.CreateSection(ctx, "LEEECS10113.00", "Tutorials")
		}()
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch err {
		case nil:
			created++
		case ErrSectionExists:
			conflicts++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if created != 1 {
		t.Errorf("Expected exactly 1 successful creation, got %d", created)
	}
	if conflicts != writers-1 {
		t.Errorf("Expected %d conflicts, got %d", writers-1, conflicts)
	}

	course, err := st.GetCourse(ctx, "LEEECS10113.00")
	if err != nil {
		t.Fatalf("GetCourse failed: %v", err)
	}
	count := 0
	for _, sec := range course.Sections {
		if sec.Name == "Tutorials" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 'Tutorials' section, found %d", count)
	}
}

func TestCreateLink(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}
	if err := st.CreateSection(ctx, "LEEECS10113.00", "Zoom Links"); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}

	link := model.Link{Type: "zoom", URL: "https://example.com/j/123"}

	if _, err := st.CreateLink(ctx, "MISSING", "Zoom Links", link); err != ErrCourseNotFound {
		t.Errorf("Expected ErrCourseNotFound, got %v", err)
	}
	if _, err := st.CreateLink(ctx, "LEEECS10113.00", "Missing Section", link); err != ErrSectionNotFound {
		t.Errorf("Expected ErrSectionNotFound, got %v", err)
	}

	created, err := st.CreateLink(ctx, "LEEECS10113.00", "Zoom Links", link)
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Created link should have an ID")
	}
	if created.Clicks != 0 {
		t.Errorf("New link clicks = %d, want 0", created.Clicks)
	}

	if _, err := st.CreateLink(ctx, "LEEECS10113.00", "Zoom Links", link); err != ErrDuplicateURL {
		t.Errorf("Expected ErrDuplicateURL, got %v", err)
	}
}

func TestCreateLink_ConcurrentDuplicates(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}
	if err := st.CreateSection(ctx, "LEEECS10113.00", "Zoom Links"); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.CreateLink(ctx, "LEEECS10113.00", "Zoom Links", model.Link{
				Type: "zoom",
				URL:  "https://example.com/j/123",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var created int
	for err := range results {
		switch err {
		case nil:
			created++
		case ErrDuplicateURL:
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("Expected exactly 1 successful creation, got %d", created)
	}

	course, err := st.GetCourse(ctx, "LEEECS10113.00")
	if err != nil {
		t.Fatalf("GetCourse failed: %v", err)
	}
	if got := len(course.Sections[0].Links); got != 1 {
		t.Errorf("Expected 1 link in section, got %d", got)
	}
}

func TestIncrementLinkClicks(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCourse(ctx, testCourse("LEEECS10113.00")); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}
	if err := st.CreateSection(ctx, "LEEECS10113.00", "Zoom Links"); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}
	if _, err := st.CreateLink(ctx, "LEEECS10113.00", "Zoom Links", model.Link{Type: "zoom", URL: "https://example.com/j/123"}); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	// Misses at every level are silent no-ops
	if err := st.IncrementLinkClicks(ctx, "MISSING", "Zoom Links", "https://example.com/j/123"); err != nil {
		t.Errorf("Missing course should be a no-op, got %v", err)
	}
	if err := st.IncrementLinkClicks(ctx, "LEEECS10113.00", "Missing", "https://example.com/j/123"); err != nil {
		t.Errorf("Missing section should be a no-op, got %v", err)
	}
	if err := st.IncrementLinkClicks(ctx, "LEEECS10113.00", "Zoom Links", "https://example.com/other"); err != nil {
		t.Errorf("Missing link should be a no-op, got %v", err)
	}

	course, err := st.GetCourse(ctx, "LEEECS10113.00")
	if err != nil {
		t.Fatalf("GetCourse failed: %v", err)
	}
	if got := course.Sections[0].Links[0].Clicks; got != 0 {
		t.Errorf("No-op increments changed counter to %d", got)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.IncrementLinkClicks(ctx, "LEEECS10113.00", "Zoom Links", "https://example.com/j/123")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("IncrementLinkClicks failed: %v", err)
		}
	}

	course, err = st.GetCourse(ctx, "LEEECS10113.00")
	if err != nil {
		t.Fatalf("GetCourse failed: %v", err)
	}
	if got := course.Sections[0].Links[0].Clicks; got != n {
		t.Errorf("Clicks = %d, want %d (lost updates)", got, n)
	}
}

func TestListCoursesAndStats(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	a := testCourse("LEEECS10113.00")
	b := testCourse("APECON10006.00")
	b.Faculty = "AP"
	b.Subject = "ECON"
	b.Name = "Introductory Microeconomics"

	for _, c := range []model.Course{a, b} {
		if _, err := st.CreateCourse(ctx, c); err != nil {
			t.Fatalf("CreateCourse failed: %v", err)
		}
	}
	if err := st.CreateSection(ctx, a.Code, "Notes"); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}
	if _, err := st.CreateLink(ctx, a.Code, "Notes", model.Link{Type: "drive", URL: "https://example.com/doc"}); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if err := st.IncrementLinkClicks(ctx, a.Code, "Notes", "https://example.com/doc"); err != nil {
		t.Fatalf("IncrementLinkClicks failed: %v", err)
	}

	all, err := st.ListCourses(ctx, "", "", "")
	if err != nil {
		t.Fatalf("ListCourses failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListCourses returned %d courses, want 2", len(all))
	}

	econ, err := st.ListCourses(ctx, "AP", "", "")
	if err != nil {
		t.Fatalf("ListCourses failed: %v", err)
	}
	if len(econ) != 1 || econ[0].Code != b.Code {
		t.Errorf("Faculty filter returned %v", econ)
	}

	byName, err := st.ListCourses(ctx, "", "", "microeconomics")
	if err != nil {
		t.Fatalf("ListCourses failed: %v", err)
	}
	if len(byName) != 1 || byName[0].Code != b.Code {
		t.Errorf("Query filter returned %v", byName)
	}

	stats, err := st.GlobalStats(ctx)
	if err != nil {
		t.Fatalf("GlobalStats failed: %v", err)
	}
	if stats.Courses != 2 || stats.Sections != 1 || stats.Links != 1 || stats.Clicks != 1 {
		t.Errorf("GlobalStats = %+v", stats)
	}

	linkStats, err := st.CourseStats(ctx, a.Code)
	if err != nil {
		t.Fatalf("CourseStats failed: %v", err)
	}
	if len(linkStats) != 1 || linkStats[0].Clicks != 1 {
		t.Errorf("CourseStats = %+v", linkStats)
	}

	if _, err := st.CourseStats(ctx, "MISSING"); err != ErrCourseNotFound {
		t.Errorf("Expected ErrCourseNotFound, got %v", err)
	}
}

func TestSubmitReport(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx := context.Background()

	report, err := st.SubmitReport(ctx, model.Report{
		LinkID: "some-link-id",
		Reason: "broken link",
		Origin: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("SubmitReport failed: %v", err)
	}
	if report.ID == "" {
		t.Error("Report should have an ID")
	}
	if report.CreatedAt.IsZero() {
		t.Error("Report should be timestamped")
	}
}
