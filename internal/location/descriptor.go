package location

// Zone identifies one of the storage zones a dataset passes through.
type Zone string

// Zones of a dataset hop.
const (
	ZoneSource            Zone = "source"
	ZoneDestination       Zone = "destination"
	ZoneMaskedSource      Zone = "masked-source"
	ZoneMaskedDestination Zone = "masked-destination"
)

// Descriptor names a dataset inside a zone: the zone's data location plus
// the dataset path relative to it. Descriptors are values and are not
// modified after configuration load.
type Descriptor struct {
	Zone        Zone
	URI         string
	DatasetPath string
}

// FullURI is the data location joined with the dataset path.
func (d Descriptor) FullURI() string {
	return Join(d.URI, d.DatasetPath)
}

// Location parses FullURI.
func (d Descriptor) Location() (Location, error) {
	return Parse(d.FullURI())
}
