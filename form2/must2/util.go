package must2

// tolerance below which two vertices are the same point.
const tolerance = 1e-9
