// Package models - file.go defines the File record: one accepted artifact of a
// release with its digests and storage location.
package models

import (
	"time"

	"github.com/warehub/warehub/internal/db"
)

// FileSchema is the field layout of the "file" table.
var FileSchema = db.NewSchema("file",
	db.FieldDesc{Name: "release_id", Kind: db.Int},
	db.FieldDesc{Name: "name", Kind: db.String},
	db.FieldDesc{Name: "path", Kind: db.String},
	db.FieldDesc{Name: "python_version", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "package_type", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "comment_text", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "size", Kind: db.Int, Default: func() any { return int64(-1) }},
	db.FieldDesc{Name: "has_signature", Kind: db.Bool},
	db.FieldDesc{Name: "md5_digest", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "sha256_digest", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "blake2_256_digest", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "upload_time", Kind: db.String},
	db.FieldDesc{Name: "uploaded_via", Kind: db.String, Nullable: true},
)

// File field references for building predicates.
var (
	FileReleaseID = FileSchema.Field("release_id")
	FileName      = FileSchema.Field("name")
)

// File is a typed view over a file record.
type File struct {
	*db.Record
}

// NewFile returns an unsaved file of the release with the given id.
func NewFile(releaseID int, name, path string, uploaded time.Time) *File {
	f := &File{Record: FileSchema.New()}
	f.Set("release_id", int64(releaseID))
	f.Set("name", name)
	f.Set("path", path)
	f.Set("upload_time", db.Timestamp(uploaded))
	return f
}

// AsFiles wraps store records.
func AsFiles(records []*db.Record) []*File {
	out := make([]*File, len(records))
	for i, r := range records {
		out[i] = &File{Record: r}
	}
	return out
}

func (f *File) ReleaseID() int           { return int(f.Int("release_id")) }
func (f *File) Name() string             { return f.String("name") }
func (f *File) Path() string             { return f.String("path") }
func (f *File) PythonVersion() *string   { return f.OptString("python_version") }
func (f *File) PackageType() *string     { return f.OptString("package_type") }
func (f *File) CommentText() *string     { return f.OptString("comment_text") }
func (f *File) Size() int64              { return f.Int("size") }
func (f *File) HasSignature() bool       { return f.Bool("has_signature") }
func (f *File) MD5Digest() *string       { return f.OptString("md5_digest") }
func (f *File) SHA256Digest() *string    { return f.OptString("sha256_digest") }
func (f *File) BLAKE2256Digest() *string { return f.OptString("blake2_256_digest") }
func (f *File) UploadTime() string       { return f.String("upload_time") }
func (f *File) UploadedVia() *string     { return f.OptString("uploaded_via") }

// SetOptional stores value in a nullable field, writing null for nil.
func (f *File) SetOptional(field string, value *string) {
	if value == nil {
		f.Set(field, nil)
		return
	}
	f.Set(field, *value)
}

// PGPName is the name of the detached signature published next to the file.
func (f *File) PGPName() string {
	return f.Name() + ".asc"
}
