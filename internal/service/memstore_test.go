package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/internal/repository"
	"github.com/noah-isme/studynotion-api/pkg/payment"
)

// memStore is an in-memory stand-in for the course, user and progress tables. Appends are
// conditional under one lock, matching the single-statement updates of the SQL repositories.
type memStore struct {
	mu       sync.Mutex
	courses  map[string]*models.Course
	users    map[string]*models.User
	progress map[string]*models.ProgressRecord
	lessons  map[string]string
	layout   map[string][]models.SectionStructure
	audits   []*models.AuditLog
	nextID   int

	hideProgressReads int
}

func newMemStore() *memStore {
	return &memStore{
		courses:  map[string]*models.Course{},
		users:    map[string]*models.User{},
		progress: map[string]*models.ProgressRecord{},
		lessons:  map[string]string{},
		layout:   map[string][]models.SectionStructure{},
	}
}

// seedCourse registers a course whose sections hold the given lesson ids in order.
func (m *memStore) seedCourse(id, instructorID string, price int64, sections map[string][]string, order ...string) *models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	course := &models.Course{ID: id, Name: "Course " + id, InstructorID: instructorID, Price: price, Status: models.CourseStatusPublished, EnrolledStudents: pq.StringArray{}}
	var layout []models.SectionStructure
	for _, sectionID := range order {
		lessons := sections[sectionID]
		course.Sections = append(course.Sections, sectionID)
		layout = append(layout, models.SectionStructure{SectionID: sectionID, LessonIDs: lessons, DurationSeconds: 60 * len(lessons)})
		for _, lessonID := range lessons {
			m.lessons[lessonID] = id
		}
	}
	m.courses[id] = course
	m.layout[id] = layout
	return course
}

func (m *memStore) seedUser(id string, role models.UserRole) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &models.User{ID: id, FirstName: "User", LastName: id, Email: id + "@example.com", Role: role, Active: true}
	m.users[id] = user
	return user
}

func progressKey(userID, courseID string) string {
	return userID + "|" + courseID
}

func (m *memStore) progressCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.progress)
}

type memCourses struct{ *memStore }

func (c memCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *course
	clone.EnrolledStudents = append(pq.StringArray{}, course.EnrolledStudents...)
	return &clone, nil
}

func (c memCourses) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	out := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		if course, err := c.FindByID(ctx, id); err == nil {
			out = append(out, *course)
		}
	}
	return out, nil
}

func (c memCourses) AddEnrolledStudent(ctx context.Context, courseID, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[courseID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if course.IsEnrolled(userID) {
		return false, nil
	}
	course.EnrolledStudents = append(course.EnrolledStudents, userID)
	return true, nil
}

func (c memCourses) Structure(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	layout, ok := c.layout[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseStructure{CourseID: courseID, Sections: layout}, nil
}

type memUsers struct{ *memStore }

func (u memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (u memUsers) AddCourse(ctx context.Context, userID, courseID string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[userID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if user.HasCourse(courseID) {
		return false, nil
	}
	user.Courses = append(user.Courses, courseID)
	return true, nil
}

func (u memUsers) AddProgress(ctx context.Context, userID, progressID string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[userID]
	if !ok {
		return false, sql.ErrNoRows
	}
	for _, id := range user.CourseProgress {
		if id == progressID {
			return false, nil
		}
	}
	user.CourseProgress = append(user.CourseProgress, progressID)
	return true, nil
}

func (u memUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.audits = append(u.audits, log)
	return nil
}

type memProgress struct{ *memStore }

func (p memProgress) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.ProgressRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hideProgressReads > 0 {
		p.hideProgressReads--
		return nil, sql.ErrNoRows
	}
	rec, ok := p.progress[progressKey(userID, courseID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *rec
	clone.CompletedVideos = append(pq.StringArray{}, rec.CompletedVideos...)
	return &clone, nil
}

func (p memProgress) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.ProgressRecord
	for _, rec := range p.progress {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (p memProgress) Create(ctx context.Context, rec *models.ProgressRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := progressKey(rec.UserID, rec.CourseID)
	if _, exists := p.progress[key]; exists {
		return repository.ErrDuplicate
	}
	p.nextID++
	rec.ID = fmt.Sprintf("progress-%d", p.nextID)
	if rec.CompletedVideos == nil {
		rec.CompletedVideos = pq.StringArray{}
	}
	stored := *rec
	p.progress[key] = &stored
	return nil
}

func (p memProgress) AddCompletedLesson(ctx context.Context, userID, courseID, lessonID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.progress[progressKey(userID, courseID)]
	if !ok {
		return false, sql.ErrNoRows
	}
	if rec.HasCompleted(lessonID) {
		return false, nil
	}
	rec.CompletedVideos = append(rec.CompletedVideos, lessonID)
	return true, nil
}

type memLessons struct{ *memStore }

func (l memLessons) CourseIDOf(ctx context.Context, lessonID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	courseID, ok := l.lessons[lessonID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return courseID, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.OrderRequest
	err      error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &payment.Order{ID: "order_test", Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
}

func (n *recordingNotifier) SendEnrollmentConfirmed(ctx context.Context, user *models.User, course *models.Course) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, user.ID+"->"+course.ID)
}
