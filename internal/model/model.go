package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusVerified, StatusRejected:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated caller of a boundary operation. A nil *Actor
// means an anonymous public submitter.
type Actor struct {
	ID   string
	Role Role
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Submission is one intake record.
type Submission struct {
	ID              string     `json:"id" gorm:"column:id;primaryKey"`
	UserID          *string    `json:"userId" gorm:"column:user_id;uniqueIndex:idx_submissions_user_id"`
	Status          Status     `json:"status" gorm:"column:status;index"`
	Data            Data       `json:"data" gorm:"embedded"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"column:created_at;index"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"column:updated_at"`
	CreatedBy       *string    `json:"createdBy" gorm:"column:created_by"`
	VerifiedBy      *string    `json:"verifiedBy" gorm:"column:verified_by"`
	VerifiedAt      *time.Time `json:"verifiedAt" gorm:"column:verified_at"`
	RejectionReason *string    `json:"rejectionReason" gorm:"column:rejection_reason"`
	AdminNotes      *string    `json:"adminNotes" gorm:"column:admin_notes"`
}

func (Submission) TableName() string {
	return "submissions"
}

// Data holds the intake fields, grouped by form section.
type Data struct {
	// Data pribadi
	NamaDepan       string  `json:"namaDepan" gorm:"column:nama_depan"`
	NamaBelakang    *string `json:"namaBelakang,omitempty" gorm:"column:nama_belakang"`
	NamaPanggilan   *string `json:"namaPanggilan,omitempty" gorm:"column:nama_panggilan"`
	TempatLahir     *string `json:"tempatLahir,omitempty" gorm:"column:tempat_lahir"`
	TanggalLahir    *Date   `json:"tanggalLahir,omitempty" gorm:"column:tanggal_lahir"`
	Usia            *int    `json:"usia,omitempty" gorm:"column:usia"`
	JenisKelamin    *string `json:"jenisKelamin,omitempty" gorm:"column:jenis_kelamin"`
	IdentitasGender *string `json:"identitasGender,omitempty" gorm:"column:identitas_gender"`
	Agama           *string `json:"agama,omitempty" gorm:"column:agama"`

	// Dokumen identitas
	NIK                   string  `json:"nik" gorm:"column:nik;uniqueIndex:idx_submissions_nik"`
	NomorKK               *string `json:"nomorKK,omitempty" gorm:"column:nomor_kk;uniqueIndex:idx_submissions_nomor_kk"`
	KepemilikanEKTP       string  `json:"kepemilikanEKTP" gorm:"column:kepemilikan_ektp"`
	MemilikiAktaKelahiran *bool   `json:"memilikiAktaKelahiran,omitempty" gorm:"column:memiliki_akta_kelahiran"`

	// Alamat
	AlamatLengkap       string  `json:"alamatLengkap" gorm:"column:alamat_lengkap"`
	Kota                string  `json:"kota" gorm:"column:kota;index"`
	Kecamatan           *string `json:"kecamatan,omitempty" gorm:"column:kecamatan"`
	Kelurahan           *string `json:"kelurahan,omitempty" gorm:"column:kelurahan"`
	KodePos             *string `json:"kodePos,omitempty" gorm:"column:kode_pos"`
	StatusTempatTinggal *string `json:"statusTempatTinggal,omitempty" gorm:"column:status_tempat_tinggal"`

	// Kontak
	NomorTelepon       string  `json:"nomorTelepon" gorm:"column:nomor_telepon"`
	Email              *string `json:"email,omitempty" gorm:"column:email"`
	NamaKontakDarurat  *string `json:"namaKontakDarurat,omitempty" gorm:"column:nama_kontak_darurat"`
	NomorKontakDarurat *string `json:"nomorKontakDarurat,omitempty" gorm:"column:nomor_kontak_darurat"`

	// Pekerjaan dan ekonomi
	StatusPerkawinan   string           `json:"statusPerkawinan" gorm:"column:status_perkawinan"`
	PendidikanTerakhir string           `json:"pendidikanTerakhir" gorm:"column:pendidikan_terakhir"`
	Pekerjaan          *string          `json:"pekerjaan,omitempty" gorm:"column:pekerjaan"`
	StatusPekerjaan    *string          `json:"statusPekerjaan,omitempty" gorm:"column:status_pekerjaan"`
	PenghasilanBulanan *decimal.Decimal `json:"penghasilanBulanan,omitempty" gorm:"column:penghasilan_bulanan;type:text"`
	JumlahTanggungan   *int             `json:"jumlahTanggungan,omitempty" gorm:"column:jumlah_tanggungan"`

	// Riwayat pelatihan
	PelatihanDiikuti    StringList `json:"pelatihanDiikuti" gorm:"column:pelatihan_diikuti"`
	PelatihanDiinginkan StringList `json:"pelatihanDiinginkan" gorm:"column:pelatihan_diinginkan"`

	// Jaminan sosial
	JenisJaminanSosial StringList `json:"jenisJaminanSosial" gorm:"column:jenis_jaminan_sosial"`
	NomorBPJS          *string    `json:"nomorBPJS,omitempty" gorm:"column:nomor_bpjs"`

	// Kesehatan
	KondisiKesehatan      *string    `json:"kondisiKesehatan,omitempty" gorm:"column:kondisi_kesehatan"`
	PenyakitKronis        StringList `json:"penyakitKronis" gorm:"column:penyakit_kronis"`
	AksesLayananKesehatan *bool      `json:"aksesLayananKesehatan,omitempty" gorm:"column:akses_layanan_kesehatan"`
	RutinKonsumsiObat     *bool      `json:"rutinKonsumsiObat,omitempty" gorm:"column:rutin_konsumsi_obat"`

	// Disabilitas
	MemilikiDisabilitas *bool      `json:"memilikiDisabilitas,omitempty" gorm:"column:memiliki_disabilitas"`
	JenisDisabilitas    StringList `json:"jenisDisabilitas" gorm:"column:jenis_disabilitas"`

	// Diskriminasi
	PernahDiskriminasi         *bool      `json:"pernahDiskriminasi,omitempty" gorm:"column:pernah_diskriminasi"`
	JenisDiskriminasi          StringList `json:"jenisDiskriminasi" gorm:"column:jenis_diskriminasi"`
	PelakuDiskriminasi         StringList `json:"pelakuDiskriminasi" gorm:"column:pelaku_diskriminasi"`
	DilaporkanKePihakBerwenang *bool      `json:"dilaporkanKePihakBerwenang,omitempty" gorm:"column:dilaporkan_ke_pihak_berwenang"`

	// Bantuan sosial
	TerdaftarDTKS     *bool      `json:"terdaftarDTKS,omitempty" gorm:"column:terdaftar_dtks"`
	BantuanDiterima   StringList `json:"bantuanDiterima" gorm:"column:bantuan_diterima"`
	KeteranganBantuan *string    `json:"keteranganBantuan,omitempty" gorm:"column:keterangan_bantuan"`
}

// StatusChange is one row of a submission's status history.
type StatusChange struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	SubmissionID string    `json:"submissionId" gorm:"column:submission_id;index"`
	FromStatus   Status    `json:"fromStatus" gorm:"column:from_status"`
	ToStatus     Status    `json:"toStatus" gorm:"column:to_status"`
	ChangedBy    string    `json:"changedBy" gorm:"column:changed_by"`
	Reason       *string   `json:"reason,omitempty" gorm:"column:reason"`
	CreatedAt    time.Time `json:"createdAt" gorm:"column:created_at"`
}

func (StatusChange) TableName() string {
	return "submission_status_history"
}

// Transition is a conditional status change. It applies only while the
// stored status still equals From. When Data is set the intake fields are
// replaced in the same write.
type Transition struct {
	SubmissionID string
	From         Status
	To           Status
	ActorID      string
	Reason       *string
	ClearReason  bool
	SetVerifier  bool
	Data         *Data
	HistoryID    string
	At           time.Time
}

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// Post is a kegiatan announcement. Body is markdown.
type Post struct {
	ID          string     `json:"id" gorm:"column:id;primaryKey"`
	Title       string     `json:"title" gorm:"column:title"`
	Slug        string     `json:"slug" gorm:"column:slug;uniqueIndex:idx_posts_slug"`
	Body        string     `json:"body" gorm:"column:body"`
	Status      PostStatus `json:"status" gorm:"column:status;index"`
	CreatedBy   *string    `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy   *string    `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"column:updated_at"`
	PublishedAt *time.Time `json:"publishedAt" gorm:"column:published_at"`
}

func (Post) TableName() string {
	return "posts"
}

type Account struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex:idx_accounts_email"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         Role      `json:"role" gorm:"column:role"`
	CreatedAt    time.Time `json:"createdAt" gorm:"column:created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
