// Package attributes expone los atributos de una mascota sin pasar por su owner.
// Toda escritura pasa por owners.Service.EditPet: el agregado Owner sigue siendo
// la unidad de guardado.
package attributes

import (
	"context"
	"fmt"

	"vet-clinic-records/internal/domain/owners"
	"vet-clinic-records/internal/platform/logger"
)

type Service struct {
	owners *owners.Service
	log    logger.Logger
}

func NewService(ownersSvc *owners.Service, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{owners: ownersSvc, log: log}
}

// Input es un atributo tal como llega por la API (el id puede faltar).
type Input struct {
	ID    *int
	Name  string
	Value string
	Order *int
}

// applyTo pisa nombre y valor; Order solo si vino en el request.
func (in Input) applyTo(a *owners.Attribute) {
	a.Name = in.Name
	a.Value = in.Value
	if in.Order != nil {
		v := *in.Order
		a.Order = &v
	}
}

func (in Input) attribute() owners.Attribute {
	return owners.Attribute{ID: in.ID, Name: in.Name, Value: in.Value, Order: in.Order}
}

func (s *Service) List(ctx context.Context, petID int) ([]owners.Attribute, error) {
	p, err := s.pet(ctx, petID)
	if err != nil {
		return nil, err
	}
	if p.Attributes == nil {
		return []owners.Attribute{}, nil
	}
	return p.Attributes, nil
}

// Get devuelve ErrNotFound también si el atributo es de otra mascota.
func (s *Service) Get(ctx context.Context, petID, attrID int) (owners.Attribute, error) {
	p, err := s.pet(ctx, petID)
	if err != nil {
		return owners.Attribute{}, err
	}
	a, err := p.AttributeByID(attrID)
	if err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Get: %w", err)
	}
	return *a, nil
}

func (s *Service) Create(ctx context.Context, petID int, in Input) (owners.Attribute, error) {
	if in.attribute().IsEmpty() {
		return owners.Attribute{}, fmt.Errorf("%w: attribute name or value required", owners.ErrInvalidInput)
	}
	if err := in.attribute().Validate(); err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Create: %w", err)
	}

	created, err := s.createMany(ctx, petID, []owners.Attribute{in.attribute()})
	if err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Create: %w", err)
	}
	if len(created) == 0 {
		return owners.Attribute{}, fmt.Errorf("attributes.Create: %w: nothing stored", owners.ErrInvalidInput)
	}
	return created[0], nil
}

func (s *Service) Update(ctx context.Context, petID, attrID int, in Input) (owners.Attribute, error) {
	if err := s.checkOwnership(ctx, petID, attrID); err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Update: %w", err)
	}
	if in.attribute().IsEmpty() {
		return owners.Attribute{}, fmt.Errorf("%w: attribute name or value required", owners.ErrInvalidInput)
	}
	if err := in.attribute().Validate(); err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Update: %w", err)
	}

	p, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		a, err := p.AttributeByID(attrID)
		if err != nil {
			return err
		}
		in.applyTo(a)
		owners.SortAttributes(p.Attributes)
		return nil
	})
	if err != nil {
		return owners.Attribute{}, fmt.Errorf("attributes.Update: %w", err)
	}

	a, err := p.AttributeByID(attrID)
	if err != nil {
		return owners.Attribute{}, err
	}
	s.log.Info("attribute updated", map[string]any{"pet_id": petID, "attribute_id": attrID})
	return *a, nil
}

func (s *Service) Delete(ctx context.Context, petID, attrID int) error {
	if err := s.checkOwnership(ctx, petID, attrID); err != nil {
		return fmt.Errorf("attributes.Delete: %w", err)
	}

	_, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		if _, err := p.AttributeByID(attrID); err != nil {
			return err
		}
		p.Attributes = without(p.Attributes, map[int]bool{attrID: true})
		return nil
	})
	if err != nil {
		return fmt.Errorf("attributes.Delete: %w", err)
	}
	s.log.Info("attribute deleted", map[string]any{"pet_id": petID, "attribute_id": attrID})
	return nil
}

// Replace reemplaza la colección completa reconciliando contra lo existente.
func (s *Service) Replace(ctx context.Context, petID int, submitted []Input) ([]owners.Attribute, error) {
	in := make([]owners.Attribute, 0, len(submitted))
	for _, a := range submitted {
		in = append(in, a.attribute())
	}
	if err := owners.ValidateAttributes(in); err != nil {
		return nil, fmt.Errorf("attributes.Replace: %w", err)
	}

	var stats owners.ReconcileStats
	p, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		p.Attributes, stats = owners.ReconcileAttributesStats(p.ID, p.Attributes, in)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attributes.Replace: %w", err)
	}

	s.owners.RecordReconcile(petID, stats)
	return nonNil(p.Attributes), nil
}

// CreateBatch agrega los no vacíos; ids enviados se ignoran.
func (s *Service) CreateBatch(ctx context.Context, petID int, items []Input) ([]owners.Attribute, error) {
	in := make([]owners.Attribute, 0, len(items))
	for _, a := range items {
		in = append(in, a.attribute())
	}
	if err := owners.ValidateAttributes(in); err != nil {
		return nil, fmt.Errorf("attributes.CreateBatch: %w", err)
	}

	created, err := s.createMany(ctx, petID, in)
	if err != nil {
		return nil, fmt.Errorf("attributes.CreateBatch: %w", err)
	}
	return created, nil
}

// UpdateBatch actualiza solo los que traen id de esta mascota y contenido;
// el resto se ignora en silencio.
func (s *Service) UpdateBatch(ctx context.Context, petID int, items []Input) ([]owners.Attribute, error) {
	for _, in := range items {
		if err := in.attribute().Validate(); err != nil {
			return nil, fmt.Errorf("attributes.UpdateBatch: %w", err)
		}
	}

	touched := map[int]bool{}
	p, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		for _, in := range items {
			if in.ID == nil || in.attribute().IsEmpty() {
				continue
			}
			a, err := p.AttributeByID(*in.ID)
			if err != nil {
				continue
			}
			in.applyTo(a)
			touched[*in.ID] = true
		}
		owners.SortAttributes(p.Attributes)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attributes.UpdateBatch: %w", err)
	}

	out := make([]owners.Attribute, 0, len(touched))
	for _, a := range p.Attributes {
		if a.ID != nil && touched[*a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteBatch borra los ids que sean de la mascota; el resto se ignora.
func (s *Service) DeleteBatch(ctx context.Context, petID int, ids []int) error {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	_, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		p.Attributes = without(p.Attributes, drop)
		return nil
	})
	if err != nil {
		return fmt.Errorf("attributes.DeleteBatch: %w", err)
	}
	return nil
}

// ---------- helpers ----------

func (s *Service) pet(ctx context.Context, petID int) (owners.Pet, error) {
	o, err := s.owners.OwnerOfPet(ctx, petID)
	if err != nil {
		return owners.Pet{}, err
	}
	p, err := o.PetByID(petID)
	if err != nil {
		return owners.Pet{}, err
	}
	return *p, nil
}

// checkOwnership: ErrNotFound si el atributo no existe, ErrWrongPet si es de otra mascota.
func (s *Service) checkOwnership(ctx context.Context, petID, attrID int) error {
	if _, err := s.owners.OwnerOfPet(ctx, petID); err != nil {
		return err
	}
	a, err := s.owners.Attribute(ctx, attrID)
	if err != nil {
		return err
	}
	if a.PetID != petID {
		return fmt.Errorf("%w: attribute %d belongs to pet %d", owners.ErrWrongPet, attrID, a.PetID)
	}
	return nil
}

func (s *Service) createMany(ctx context.Context, petID int, in []owners.Attribute) ([]owners.Attribute, error) {
	before := map[int]bool{}
	p, err := s.owners.EditPet(ctx, petID, func(p *owners.Pet) error {
		for _, a := range p.Attributes {
			if a.ID != nil {
				before[*a.ID] = true
			}
		}
		p.Attributes = append(p.Attributes, owners.NewAttributes(p.ID, in)...)
		owners.SortAttributes(p.Attributes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]owners.Attribute, 0, len(in))
	for _, a := range p.Attributes {
		if a.ID != nil && !before[*a.ID] {
			out = append(out, a)
		}
	}
	s.log.Info("attributes created", map[string]any{"pet_id": petID, "count": len(out)})
	return out, nil
}

func without(attrs []owners.Attribute, drop map[int]bool) []owners.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if a.ID != nil && drop[*a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func nonNil(attrs []owners.Attribute) []owners.Attribute {
	if attrs == nil {
		return []owners.Attribute{}
	}
	return attrs
}
