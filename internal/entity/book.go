package entity

// Book is a catalogue record. Description, ISBN, PublicationDate and Rating are optional.
type Book struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Description     string `json:"description,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"` // YYYY-MM-DD
	Rating          int    `json:"rating,omitempty"`           // 1..5, 0 when unrated
}

// BookInput is the payload accepted by create and update. It never carries an id.
type BookInput struct {
	Title           string `json:"title" form:"title" validate:"notblank,max=100"`
	Author          string `json:"author" form:"author" validate:"notblank,max=50"`
	Description     string `json:"description" form:"description" validate:"max=500"`
	ISBN            string `json:"isbn" form:"isbn" validate:"omitempty,max=20,isbnchars"`
	PublicationDate string `json:"publication_date" form:"publication_date" validate:"omitempty,datetime=2006-01-02"`
	Rating          int    `json:"rating" form:"rating" validate:"omitempty,min=1,max=5"`
}

// Validate reports every field that breaks the length, format or range rules.
func (in BookInput) Validate() error {
	return validateStruct(in)
}

// Book builds the stored record for the given id.
func (in BookInput) Book(id int) *Book {
	return &Book{
		ID:              id,
		Title:           in.Title,
		Author:          in.Author,
		Description:     in.Description,
		ISBN:            in.ISBN,
		PublicationDate: in.PublicationDate,
		Rating:          in.Rating,
	}
}
