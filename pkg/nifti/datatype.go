package nifti

import "fmt"

// Datatype is the NIFTI voxel datatype code stored in the header.
type Datatype int16

// Datatype codes defined by the NIFTI-1 standard.
const (
	DatatypeUnknown    Datatype = 0
	DatatypeBinary     Datatype = 1
	DatatypeUint8      Datatype = 2
	DatatypeInt16      Datatype = 4
	DatatypeInt32      Datatype = 8
	DatatypeFloat32    Datatype = 16
	DatatypeComplex64  Datatype = 32
	DatatypeFloat64    Datatype = 64
	DatatypeRGB24      Datatype = 128
	DatatypeInt8       Datatype = 256
	DatatypeUint16     Datatype = 512
	DatatypeUint32     Datatype = 768
	DatatypeInt64      Datatype = 1024
	DatatypeUint64     Datatype = 1280
	DatatypeFloat128   Datatype = 1536
	DatatypeComplex128 Datatype = 1792
	DatatypeComplex256 Datatype = 2048
	DatatypeRGBA32     Datatype = 2304
)

var datatypeNames = map[Datatype]string{
	DatatypeUnknown:    "unknown",
	DatatypeBinary:     "binary",
	DatatypeUint8:      "uint8",
	DatatypeInt16:      "int16",
	DatatypeInt32:      "int32",
	DatatypeFloat32:    "float32",
	DatatypeComplex64:  "complex64",
	DatatypeFloat64:    "float64",
	DatatypeRGB24:      "rgb24",
	DatatypeInt8:       "int8",
	DatatypeUint16:     "uint16",
	DatatypeUint32:     "uint32",
	DatatypeInt64:      "int64",
	DatatypeUint64:     "uint64",
	DatatypeFloat128:   "float128",
	DatatypeComplex128: "complex128",
	DatatypeComplex256: "complex256",
	DatatypeRGBA32:     "rgba32",
}

// String returns the lowercase name of the datatype.
func (d Datatype) String() string {
	if name, ok := datatypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", int16(d))
}

// Supported reports whether voxels of this type can be viewed and rendered.
func (d Datatype) Supported() bool {
	return d.Size() > 0
}

// Size returns the element size in bytes for supported datatypes, or 0.
func (d Datatype) Size() int {
	switch d {
	case DatatypeUint8, DatatypeInt8:
		return 1
	case DatatypeInt16, DatatypeUint16:
		return 2
	case DatatypeInt32, DatatypeUint32, DatatypeFloat32:
		return 4
	case DatatypeFloat64:
		return 8
	default:
		return 0
	}
}
