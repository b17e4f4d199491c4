package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/provisioner"
	"github.com/huangang/sqldesk/internal/utils"
	"gorm.io/gorm"
)

// ProjectService manages projects together with the database each one owns.
type ProjectService struct {
	db          *gorm.DB
	provisioner provisioner.Provisioner
	logs        *SystemLogService
}

func NewProjectService(db *gorm.DB, prov provisioner.Provisioner, logs *SystemLogService) *ProjectService {
	return &ProjectService{db: db, provisioner: prov, logs: logs}
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Name     string `form:"name"`
	Tags     string `form:"tags"` // comma separated, every tag must match
}

type ProjectItem struct {
	models.Project
	Participants       []string `json:"participants"`
	ParticipantsNames  []string `json:"participants_names"`
	ParticipantsLabels []string `json:"participants_labels"`
	Tags               []string `json:"tags"`
}

type ProjectListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []ProjectItem `json:"items"`
}

// ProjectRequest is the payload of create and update. Nil Participants or
// Tags leave the current set untouched on update.
type ProjectRequest struct {
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	ShortName    string      `json:"short_name"`
	Version      string      `json:"version"`
	Type         string      `json:"type"`
	Status       string      `json:"status"`
	OwnerEmail   string      `json:"owner_email"`
	Participants *PersonList `json:"participants"`
	Tags         *TagList    `json:"tags"`
}

func (r *ProjectRequest) normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	r.ShortName = strings.TrimSpace(r.ShortName)
	r.Version = strings.TrimSpace(r.Version)
	r.Type = strings.TrimSpace(r.Type)
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		r.Status = models.ProjectStatusActive
	}
}

// List returns the projects visible to the actor with participants and tags attached.
func (s *ProjectService) List(req *ProjectListRequest, actor Actor) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 200 {
		req.PageSize = 50
	}

	query := s.db.Model(&models.Project{}).Scopes(accessibleProjects(actor, "projects.id"))
	if req.Name != "" {
		query = query.Where("projects.name LIKE ?", "%"+req.Name+"%")
	}
	for _, tag := range splitTags(req.Tags) {
		query = query.Where(
			"projects.id IN (SELECT project_tags.project_id FROM project_tags JOIN tags ON tags.id = project_tags.tag_id WHERE LOWER(tags.name) = ?)",
			tag,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.Preload("Owner").Order("projects.id DESC").Offset(offset).Limit(req.PageSize).Find(&projects).Error; err != nil {
		return nil, err
	}

	items, err := s.attach(projects)
	if err != nil {
		return nil, err
	}
	return &ProjectListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// GetByID returns one project if the actor may see it.
func (s *ProjectService) GetByID(id uint, actor Actor) (*ProjectItem, error) {
	project, err := loadAccessibleProject(s.db, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Owner").First(project, id).Error; err != nil {
		return nil, err
	}
	items, err := s.attach([]models.Project{*project})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *ProjectService) attach(projects []models.Project) ([]ProjectItem, error) {
	items := make([]ProjectItem, len(projects))
	if len(projects) == 0 {
		return items, nil
	}

	ids := make([]uint, len(projects))
	index := make(map[uint]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		index[p.ID] = i
		items[i] = ProjectItem{
			Project:            p,
			Participants:       []string{},
			ParticipantsNames:  []string{},
			ParticipantsLabels: []string{},
			Tags:               []string{},
		}
	}

	var participants []models.ProjectParticipant
	if err := s.db.Preload("User").Where("project_id IN ?", ids).Find(&participants).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participantName(participants[i]) < participantName(participants[j])
	})
	for _, pp := range participants {
		if pp.User == nil {
			continue
		}
		item := &items[index[pp.ProjectID]]
		item.Participants = append(item.Participants, pp.User.Email)
		item.ParticipantsNames = append(item.ParticipantsNames, pp.User.Name)
		item.ParticipantsLabels = append(item.ParticipantsLabels, userLabel(pp.User))
	}

	var tags []struct {
		ProjectID uint
		Name      string
	}
	err := s.db.Table("project_tags").
		Select("project_tags.project_id, tags.name").
		Joins("JOIN tags ON tags.id = project_tags.tag_id").
		Where("project_tags.project_id IN ?", ids).
		Order("tags.name").
		Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		item := &items[index[t.ProjectID]]
		item.Tags = append(item.Tags, t.Name)
	}
	return items, nil
}

func participantName(pp models.ProjectParticipant) string {
	if pp.User == nil {
		return ""
	}
	return pp.User.Name
}

func userLabel(u *models.User) string {
	if u.FacultyNumber != nil && *u.FacultyNumber != "" {
		return fmt.Sprintf("%s (%s)", u.Name, *u.FacultyNumber)
	}
	return u.Name
}

// Create provisions the project database, then records the project. A failed
// insert drops the database again so neither side is left behind.
func (s *ProjectService) Create(ctx context.Context, req *ProjectRequest, actor Actor) (*models.Project, error) {
	req.normalize()
	if req.Code == "" || req.Name == "" {
		return nil, ErrMissingFields
	}
	if utils.NormalizeName(req.Name) == "" {
		return nil, ErrInvalidName
	}
	if err := s.ensureNameFree(req.Name, 0); err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if actor.IsAdmin() && req.OwnerEmail != "" {
		owner, err := s.userByEmail(s.db, req.OwnerEmail, ErrOwnerNotFound)
		if err != nil {
			return nil, err
		}
		ownerID = owner.ID
	}

	var participantIDs []uint
	if req.Participants != nil {
		ids, err := s.resolveParticipants(s.db, *req.Participants, false)
		if err != nil {
			return nil, err
		}
		participantIDs = ids
	}

	if err := s.provisioner.Provision(ctx, req.Name); err != nil {
		return nil, mapProvisionError(err)
	}

	project := models.Project{
		Code:      req.Code,
		Name:      req.Name,
		ShortName: req.ShortName,
		Version:   req.Version,
		Type:      req.Type,
		Status:    req.Status,
		OwnerID:   ownerID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		if err := replaceParticipants(tx, project.ID, ownerID, participantIDs); err != nil {
			return err
		}
		if req.Tags != nil {
			return replaceTags(tx, project.ID, *req.Tags)
		}
		return nil
	})
	if err != nil {
		s.provisioner.Deprovision(ctx, req.Name)
		if isDuplicateKey(err) {
			return nil, ErrProjectNameTaken
		}
		return nil, err
	}

	s.logs.Info(LogEntry{
		Module:  "Projects",
		Action:  "Create",
		Message: fmt.Sprintf("project %q created", project.Name),
		UserID:  &actor.UserID,
		Extra:   map[string]interface{}{"project_id": project.ID, "database": utils.NormalizeName(project.Name)},
	})
	return &project, nil
}

// Update edits project metadata. The name may change only while it maps to
// the same database identifier, otherwise the project would lose its database.
func (s *ProjectService) Update(id uint, req *ProjectRequest, actor Actor) (*models.Project, error) {
	project, err := loadAccessibleProject(s.db, id, actor)
	if err != nil {
		return nil, err
	}

	req.normalize()
	if req.Code == "" || req.Name == "" {
		return nil, ErrMissingFields
	}
	if err := s.ensureNameFree(req.Name, id); err != nil {
		return nil, err
	}
	if before, after := utils.NormalizeName(project.Name), utils.NormalizeName(req.Name); before != after {
		return nil, ErrRenameDetaches.WithDetail(fmt.Sprintf("database %s would become %s", before, after))
	}

	ownerID := project.OwnerID
	if actor.IsAdmin() && req.OwnerEmail != "" {
		owner, err := s.userByEmail(s.db, req.OwnerEmail, ErrOwnerNotFound)
		if err != nil {
			return nil, err
		}
		ownerID = owner.ID
	}

	var participantIDs []uint
	if req.Participants != nil {
		if participantIDs, err = s.resolveParticipants(s.db, *req.Participants, false); err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"code":       req.Code,
			"name":       req.Name,
			"short_name": req.ShortName,
			"version":    req.Version,
			"type":       req.Type,
			"status":     req.Status,
			"owner_id":   ownerID,
		}
		if err := tx.Model(project).Updates(updates).Error; err != nil {
			return err
		}
		if req.Participants != nil {
			if err := replaceParticipants(tx, id, ownerID, participantIDs); err != nil {
				return err
			}
		} else if ownerID != project.OwnerID {
			// a new owner must not also be listed as a participant
			if err := tx.Where("project_id = ? AND user_id = ?", id, ownerID).Delete(&models.ProjectParticipant{}).Error; err != nil {
				return err
			}
		}
		if req.Tags != nil {
			return replaceTags(tx, id, *req.Tags)
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrProjectNameTaken
		}
		return nil, err
	}

	if err := s.db.First(project, id).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the project and everything that hangs off it, then drops
// its database. Dropping is best effort; a missing database is not an error.
func (s *ProjectService) Delete(ctx context.Context, id uint, actor Actor) error {
	project, err := loadAccessibleProject(s.db, id, actor)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.ProjectTag{},
			&models.TemplateRun{},
			&models.Template{},
			&models.Server{},
			&models.Backup{},
			&models.Action{},
			&models.ProjectParticipant{},
		} {
			if err := tx.Where("project_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		return err
	}

	s.provisioner.Deprovision(ctx, project.Name)
	s.logs.Info(LogEntry{
		Module:  "Projects",
		Action:  "Delete",
		Message: fmt.Sprintf("project %q deleted", project.Name),
		UserID:  &actor.UserID,
		Extra:   map[string]interface{}{"project_id": id},
	})
	return nil
}

func (s *ProjectService) ensureNameFree(name string, exceptID uint) error {
	var count int64
	query := s.db.Model(&models.Project{}).Where("name = ?", name)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrProjectNameTaken
	}
	return nil
}

func (s *ProjectService) userByEmail(db *gorm.DB, email string, missing error) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, missing
		}
		return nil, err
	}
	return &user, nil
}

// resolveParticipants maps refs to user IDs. With create set, unknown users
// are registered as regular users with an unusable random password.
func (s *ProjectService) resolveParticipants(db *gorm.DB, refs PersonList, create bool) ([]uint, error) {
	ids := make([]uint, 0, len(refs))
	for _, ref := range refs {
		var (
			user *models.User
			err  error
		)
		if create {
			user, err = findOrCreateUser(db, ref)
		} else {
			user, err = s.userByEmail(db, ref.Email, ErrParticipantGone.WithDetail(ref.Email))
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func findOrCreateUser(db *gorm.DB, ref PersonRef) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", ref.Email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	hashed, err := utils.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	name := ref.Name
	if name == "" {
		name = ref.Email
	}
	user = models.User{
		Name:          name,
		Email:         ref.Email,
		FacultyNumber: ref.FacultyNumber,
		Password:      hashed,
		Role:          models.RoleUser,
		IsActive:      true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func replaceParticipants(tx *gorm.DB, projectID, ownerID uint, userIDs []uint) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectParticipant{}).Error; err != nil {
		return err
	}
	seen := map[uint]bool{ownerID: true}
	for _, uid := range userIDs {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if err := tx.Create(&models.ProjectParticipant{ProjectID: projectID, UserID: uid}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListTags returns every tag by name. Tags come into existence through
// project create, update and import.
func (s *ProjectService) ListTags() ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func replaceTags(tx *gorm.DB, projectID uint, names TagList) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectTag{}).Error; err != nil {
		return err
	}
	for _, name := range names {
		var tag models.Tag
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
		link := models.ProjectTag{ProjectID: projectID, TagID: tag.ID}
		if err := tx.Where(link).FirstOrCreate(&link).Error; err != nil {
			return err
		}
	}
	return nil
}
