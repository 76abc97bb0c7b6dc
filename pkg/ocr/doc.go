// Package ocr turns a raster image of a table into cell regions and cell text.
//
// Detection binarizes the image (ink as foreground), dilates it with a
// rectangular kernel so that the strokes of one cell merge into a single
// blob, and reports the bounding box of every outermost blob. Recognition
// crops each box out of the source image and hands it to an Engine; the
// default Engine is Tesseract via gosseract, which requires the Tesseract
// library to be installed.
package ocr
