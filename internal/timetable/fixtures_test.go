package timetable

import (
	"fmt"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

func fixtureInput() Input {
	courses := []models.Course{
		{ID: "c1", Name: "Calculus I", InstructorID: "i1"},
		{ID: "c2", Name: "Calculus I", InstructorID: "i1"},
		{ID: "c3", Name: "Physics", InstructorID: "i2"},
		{ID: "c4", Name: "Chemistry", InstructorID: "i3"},
		{ID: "c5", Name: "Biology", InstructorID: "i2"},
		{ID: "c6", Name: "Algorithms", InstructorID: "i4"},
	}
	timeslots := []models.Timeslot{
		{ID: "t1", Day: "Monday", Time: "09:00"},
		{ID: "t2", Day: "Monday", Time: "11:00"},
		{ID: "t3", Day: "Tuesday", Time: "09:00"},
		{ID: "t4", Day: "Tuesday", Time: "14:00"},
		{ID: "t5", Day: "Friday", Time: "09:00"},
		{ID: "t6", Day: "Wednesday", Time: "16:00"},
		{ID: "t7", Day: "Wednesday", Time: "10:00"},
	}
	rooms := []models.Room{
		{ID: "r1", Capacity: 30},
		{ID: "r2", Capacity: 4},
	}
	var students []models.Student
	for i := 0; i < 6; i++ {
		students = append(students, models.Student{ID: models.ID(fmt.Sprintf("s%d", i)), CourseID: "c1"})
	}
	for i := 0; i < 3; i++ {
		students = append(students, models.Student{ID: models.ID(fmt.Sprintf("s%d", i)), CourseID: "c3"})
		students = append(students, models.Student{ID: models.ID(fmt.Sprintf("s%d", i)), CourseID: "c4"})
	}
	students = append(students, models.Student{ID: "s9", CourseID: "c6"})
	return Input{
		Courses:     courses,
		Timeslots:   timeslots,
		Rooms:       rooms,
		Instructors: []models.Instructor{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}, {ID: "i4"}},
		Students:    students,
		Preferences: DefaultPreferences(),
	}
}

func mustCatalog(in Input) *Catalog {
	catalog, err := NewCatalog(in.Courses, in.Timeslots, in.Rooms, in.Students, in.Preferences)
	if err != nil {
		panic(err)
	}
	return catalog
}
