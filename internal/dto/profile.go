package dto

// UpdateProfileRequest edits the caller's profile.
type UpdateProfileRequest struct {
	FirstName     *string `json:"firstName" validate:"omitempty,max=80"`
	LastName      *string `json:"lastName" validate:"omitempty,max=80"`
	Gender        *string `json:"gender" validate:"omitempty,max=20"`
	DateOfBirth   *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	About         *string `json:"about" validate:"omitempty,max=1000"`
	ContactNumber *string `json:"contactNumber" validate:"omitempty,max=20"`
}

// InstructorCourseStats summarises one authored course on the instructor dashboard.
type InstructorCourseStats struct {
	CourseID         string `db:"id" json:"courseId"`
	CourseName       string `db:"name" json:"courseName"`
	Description      string `db:"description" json:"courseDescription"`
	StudentsEnrolled int    `db:"students_enrolled" json:"totalStudentsEnrolled"`
	Price            int64  `db:"price" json:"price"`
	AmountGenerated  int64  `db:"amount_generated" json:"totalAmountGenerated"`
}

// MediaUploadResponse returns the durable URL of an uploaded file.
type MediaUploadResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	ExpiresAt string `json:"expiresAt"`
}
