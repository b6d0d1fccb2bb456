package owners

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"vet-clinic-records/internal/platform/logger"
	"vet-clinic-records/internal/platform/metrics"
)

var telephoneRe = regexp.MustCompile(`^\d{10}$`)

type Options struct {
	// NameMatcher es la política de comparación de nombres de mascota.
	// nil = CaseInsensitive.
	NameMatcher NameMatcher
}

type Service struct {
	repo      Repository
	tx        TxManager
	log       logger.Logger
	matchName NameMatcher
	now       func() time.Time
}

func NewService(repo Repository, tx TxManager, log logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	match := opts.NameMatcher
	if match == nil {
		match = CaseInsensitive
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		log:       log,
		matchName: match,
		now:       time.Now,
	}
}

type OwnerInput struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	Telephone string
}

type PetInput struct {
	Name      string
	BirthDate time.Time
	Type      string // nombre del PetType
	// Attributes: lo enviado por el form/API; puede traer ids existentes.
	Attributes []Attribute
}

// ---------- owners ----------

func (s *Service) CreateOwner(ctx context.Context, in OwnerInput) (Owner, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return Owner{}, err
	}

	var out Owner
	err := s.inTx(ctx, func(ctx context.Context) error {
		saved, err := s.repo.Save(ctx, Owner{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Address:   in.Address,
			City:      in.City,
			Telephone: in.Telephone,
		})
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return Owner{}, fmt.Errorf("owners.CreateOwner: %w", err)
	}

	s.log.Info("owner created", map[string]any{"owner_id": out.ID})
	return out, nil
}

func (s *Service) UpdateOwner(ctx context.Context, id int, in OwnerInput) (Owner, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return Owner{}, err
	}

	var out Owner
	err := s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		o.FirstName = in.FirstName
		o.LastName = in.LastName
		o.Address = in.Address
		o.City = in.City
		o.Telephone = in.Telephone

		saved, err := s.repo.Save(ctx, o)
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return Owner{}, fmt.Errorf("owners.UpdateOwner: %w", err)
	}
	return out, nil
}

func (s *Service) GetOwner(ctx context.Context, id int) (Owner, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Owner{}, fmt.Errorf("owners.GetOwner: %w", err)
	}
	return o, nil
}

func (s *Service) ListOwners(ctx context.Context, filter ListFilter) ([]Owner, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.LastName = strings.TrimSpace(filter.LastName)

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("owners.ListOwners: %w", err)
	}
	if items == nil {
		return []Owner{}, nil
	}
	return items, nil
}

func (s *Service) ListPetTypes(ctx context.Context) ([]PetType, error) {
	return s.repo.ListPetTypes(ctx)
}

// ---------- pets ----------

func (s *Service) GetPet(ctx context.Context, ownerID, petID int) (Pet, error) {
	o, err := s.repo.GetByID(ctx, ownerID)
	if err != nil {
		return Pet{}, fmt.Errorf("owners.GetPet: %w", err)
	}
	p, err := o.PetByID(petID)
	if err != nil {
		return Pet{}, err
	}
	return *p, nil
}

// AddPet da de alta una mascota con sus atributos no vacíos y guarda el owner.
func (s *Service) AddPet(ctx context.Context, ownerID int, in PetInput) (Pet, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)

	var out Pet
	err := s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}

		if err := validatePetName(in.Name); err != nil {
			return err
		}
		if err := ValidateAttributes(in.Attributes); err != nil {
			return err
		}
		if o.PetByName(in.Name, true, s.matchName) != nil {
			return fmt.Errorf("%w: pet %q already exists", ErrDuplicateName, in.Name)
		}
		if err := s.checkBirthDate(in.BirthDate); err != nil {
			return err
		}
		if in.Type == "" {
			return fmt.Errorf("%w: type is required", ErrInvalidInput)
		}
		pt, err := s.resolveType(ctx, in.Type)
		if err != nil {
			return err
		}

		idx := len(o.Pets)
		o.AddPet(Pet{
			Name:       in.Name,
			BirthDate:  in.BirthDate,
			Type:       pt,
			Attributes: NewAttributes(0, in.Attributes),
		})

		saved, err := s.repo.Save(ctx, o)
		if err != nil {
			return err
		}
		out = saved.Pets[idx]
		return nil
	})
	if err != nil {
		return Pet{}, fmt.Errorf("owners.AddPet: %w", err)
	}

	s.log.Info("pet created", map[string]any{
		"owner_id":   ownerID,
		"pet_id":     out.ID,
		"attributes": len(out.Attributes),
	})
	return out, nil
}

// UpdatePet actualiza los campos de la mascota y reconcilia sus atributos con
// lo enviado, todo dentro de una transacción: load owner -> reconcile -> save owner.
func (s *Service) UpdatePet(ctx context.Context, ownerID, petID int, in PetInput) (Pet, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)

	var (
		out   Pet
		stats ReconcileStats
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		p, err := o.PetByID(petID)
		if err != nil {
			return err
		}

		if err := validatePetName(in.Name); err != nil {
			return err
		}
		if err := ValidateAttributes(in.Attributes); err != nil {
			return err
		}
		if other := o.PetByName(in.Name, false, s.matchName); other != nil && other.ID != petID {
			return fmt.Errorf("%w: pet %q already exists", ErrDuplicateName, in.Name)
		}
		if err := s.checkBirthDate(in.BirthDate); err != nil {
			return err
		}
		if in.Type != "" {
			pt, err := s.resolveType(ctx, in.Type)
			if err != nil {
				return err
			}
			p.Type = pt
		}

		p.Name = in.Name
		p.BirthDate = in.BirthDate
		p.Attributes, stats = ReconcileAttributesStats(p.ID, p.Attributes, in.Attributes)

		saved, err := s.repo.Save(ctx, o)
		if err != nil {
			return err
		}
		sp, err := saved.PetByID(petID)
		if err != nil {
			return err
		}
		out = *sp
		return nil
	})
	if err != nil {
		return Pet{}, fmt.Errorf("owners.UpdatePet: %w", err)
	}

	s.recordReconcile(ownerID, petID, stats)
	return out, nil
}

// DeletePet quita la mascota del owner; sus atributos se borran en cascada.
func (s *Service) DeletePet(ctx context.Context, ownerID, petID int) error {
	err := s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := o.RemovePet(petID); err != nil {
			return err
		}
		_, err = s.repo.Save(ctx, o)
		return err
	})
	if err != nil {
		return fmt.Errorf("owners.DeletePet: %w", err)
	}
	s.log.Info("pet deleted", map[string]any{"owner_id": ownerID, "pet_id": petID})
	return nil
}

// OwnerOfPet resuelve el owner de una mascota sin pasar por la ruta del owner.
// Falla con ErrInvalidArgument si ningún owner la tiene.
func (s *Service) OwnerOfPet(ctx context.Context, petID int) (Owner, error) {
	o, err := s.repo.FindByPetID(ctx, petID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Owner{}, fmt.Errorf("%w: pet not found with id %d", ErrInvalidArgument, petID)
		}
		return Owner{}, err
	}
	return o, nil
}

// EditPet ejecuta fn sobre la mascota dentro de una transacción
// (load owner por petID -> fn -> save owner) y devuelve la mascota guardada.
func (s *Service) EditPet(ctx context.Context, petID int, fn func(p *Pet) error) (Pet, error) {
	var out Pet
	err := s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.OwnerOfPet(ctx, petID)
		if err != nil {
			return err
		}
		p, err := o.PetByID(petID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}

		saved, err := s.repo.Save(ctx, o)
		if err != nil {
			return err
		}
		sp, err := saved.PetByID(petID)
		if err != nil {
			return err
		}
		out = *sp
		return nil
	})
	if err != nil {
		return Pet{}, err
	}
	return out, nil
}

// Attribute busca un atributo por id, sin importar la mascota.
func (s *Service) Attribute(ctx context.Context, id int) (Attribute, error) {
	return s.repo.GetAttribute(ctx, id)
}

// RecordReconcile deja log + métricas de una reconciliación hecha fuera de UpdatePet.
func (s *Service) RecordReconcile(petID int, st ReconcileStats) {
	s.recordReconcile(0, petID, st)
}

// ---------- helpers ----------

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.WithTransaction(ctx, fn)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues("rollback").Inc()
		return err
	}
	metrics.TransactionsTotal.WithLabelValues("commit").Inc()
	return nil
}

func (s *Service) checkBirthDate(d time.Time) error {
	if d.IsZero() {
		return fmt.Errorf("%w: birth date is required", ErrInvalidInput)
	}
	if d.After(s.now()) {
		return fmt.Errorf("%w: birth date %s is in the future", ErrInvalidDate, d.Format("2006-01-02"))
	}
	return nil
}

func (s *Service) resolveType(ctx context.Context, name string) (PetType, error) {
	types, err := s.repo.ListPetTypes(ctx)
	if err != nil {
		return PetType{}, err
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return PetType{}, fmt.Errorf("%w: unknown pet type %q", ErrInvalidInput, name)
}

func (s *Service) recordReconcile(ownerID, petID int, st ReconcileStats) {
	metrics.AttributeChanges.WithLabelValues("inserted").Add(float64(st.Inserted))
	metrics.AttributeChanges.WithLabelValues("updated").Add(float64(st.Updated))
	metrics.AttributeChanges.WithLabelValues("deleted").Add(float64(st.Deleted))
	metrics.AttributeChanges.WithLabelValues("discarded").Add(float64(st.Discarded))

	fields := map[string]any{
		"pet_id":    petID,
		"inserted":  st.Inserted,
		"updated":   st.Updated,
		"deleted":   st.Deleted,
		"discarded": st.Discarded,
	}
	if ownerID > 0 {
		fields["owner_id"] = ownerID
	}
	s.log.Info("pet attributes reconciled", fields)
}

func (in OwnerInput) trimmed() OwnerInput {
	return OwnerInput{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		Telephone: strings.TrimSpace(in.Telephone),
	}
}

func (in OwnerInput) validate() error {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Address == "" {
		missing = append(missing, "address")
	}
	if in.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	switch {
	case tooLong(in.FirstName, MaxPersonNameLen):
		return fmt.Errorf("%w: first_name longer than %d characters", ErrInvalidInput, MaxPersonNameLen)
	case tooLong(in.LastName, MaxPersonNameLen):
		return fmt.Errorf("%w: last_name longer than %d characters", ErrInvalidInput, MaxPersonNameLen)
	case tooLong(in.Address, MaxAddressLen):
		return fmt.Errorf("%w: address longer than %d characters", ErrInvalidInput, MaxAddressLen)
	case tooLong(in.City, MaxCityLen):
		return fmt.Errorf("%w: city longer than %d characters", ErrInvalidInput, MaxCityLen)
	}
	if !telephoneRe.MatchString(in.Telephone) {
		return fmt.Errorf("%w: telephone must be 10 digits", ErrInvalidInput)
	}
	return nil
}
