package database

import (
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/facette/natsort"

	"github.com/camden-git/attendancesys/config"
)

// Querier is satisfied by *sql.DB and *sql.Tx
type Querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// StatementBuilder returns a squirrel builder with the placeholder style of the driver
func StatementBuilder(driver string) sq.StatementBuilderType {
	if driver == config.DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// AttendanceRow is one exported attendance record
type AttendanceRow struct {
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	Date      string `json:"date"`
}

// ListAttendanceByDate returns every attendance record for date in natural student ID order
func ListAttendanceByDate(db Querier, builder sq.StatementBuilderType, date string) ([]AttendanceRow, error) {
	queryBuilder := builder.Select("name", "student_id", "status", "date").
		From("attendance_logs").
		Where(sq.Eq{"date": date}).
		OrderBy("student_id ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListAttendanceByDate: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance for %s: %w", date, err)
	}
	defer rows.Close()

	var result []AttendanceRow
	for rows.Next() {
		var row AttendanceRow
		if err := rows.Scan(&row.Name, &row.StudentID, &row.Status, &row.Date); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row for %s: %w", date, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows for %s: %w", date, err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return natsort.Compare(result[i].StudentID, result[j].StudentID)
	})
	return result, nil
}
