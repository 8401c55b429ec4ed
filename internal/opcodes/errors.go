package opcodes

import cerr "scratchc/internal/errors"

var (
	errNotCastFields     = cerr.NewInternalError("opcodes/cast.go", 0, "hq_cast opcode missing CastFields")
	errUnsupportedCast   = cerr.NewUnimplemented("unsupported cast between bases")
	errNotVariableFields = cerr.NewInternalError("opcodes/data_variable.go", 0, "data opcode missing VariableFields")
	errNotArgumentFields = cerr.NewInternalError("opcodes/data_variable.go", 0, "procedures_argument missing ArgumentFields")
	errNotListFields     = cerr.NewInternalError("opcodes/data_list.go", 0, "data opcode missing ListFields")
)
